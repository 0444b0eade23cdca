package inventory

// DedicatedRemaining es lo que un listing dedicado aún puede vender: max(0, asignado − vendido).
func DedicatedRemaining(allocated, sold int64) int64 {
	if allocated <= sold {
		return 0
	}
	return allocated - sold
}

// SharedPool es el disponible del registro menos lo comprometido por listings dedicados.
func SharedPool(available, earmarked int64) int64 {
	if available <= earmarked {
		return 0
	}
	return available - earmarked
}

// EarmarkFits verifica que el total comprometido por listings dedicados quepa en el disponible.
// El comprometido es la parte no vendida de cada asignación; lo vendido ya está reservado.
func EarmarkFits(totalEarmarked, available int64) bool {
	return totalEarmarked <= available
}
