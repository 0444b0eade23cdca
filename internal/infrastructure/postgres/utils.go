package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx; los repos funcionan con cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// insertErr traduce la violación de unicidad al centinela del dominio.
func insertErr(err error) error {
	if err != nil && isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

// limitArg NULL en LIMIT equivale a sin límite.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// mustAffect convierte una actualización sin filas en ErrNotFound.
func mustAffect(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// noRows devuelve (nil, nil) para pgx.ErrNoRows, igual que el resto de los Get.
func noRows[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
