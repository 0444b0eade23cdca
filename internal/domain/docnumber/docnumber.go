// Package docnumber arma los números de documento {prefijo}{yyyymmdd}{contador de 6 dígitos}.
package docnumber

import (
	"context"
	"fmt"
	"time"
)

// Prefijos de documento.
const (
	PrefixFulfillment = "FF"
	PrefixOutbound    = "OB"
	PrefixInbound     = "IB"
	PrefixException   = "EX"
)

// Day devuelve la parte de fecha usada como llave de secuencia.
func Day(t time.Time) string {
	return t.Format("20060102")
}

// Format construye el número, p.ej. Format("FF", 17-dic-2024, 4821) = "FF20241217004821".
// Contadores mayores a 999999 se escriben completos.
func Format(prefix string, t time.Time, counter int64) string {
	return fmt.Sprintf("%s%s%06d", prefix, Day(t), counter)
}

// Sequence entrega el siguiente contador para (prefijo, día).
type Sequence interface {
	Next(ctx context.Context, prefix, day string) (int64, error)
}

// Next toma el siguiente contador de seq y arma el número de documento.
func Next(ctx context.Context, seq Sequence, prefix string, now time.Time) (string, error) {
	n, err := seq.Next(ctx, prefix, Day(now))
	if err != nil {
		return "", fmt.Errorf("secuencia %s: %w", prefix, err)
	}
	return Format(prefix, now, n), nil
}
