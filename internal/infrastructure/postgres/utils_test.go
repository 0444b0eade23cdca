package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

func TestInsertErr_MapsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, insertErr(err), domain.ErrDuplicate)
	assert.Nil(t, insertErr(nil))
	other := errors.New("conexión cerrada")
	assert.Equal(t, other, insertErr(other))
}

func TestMustAffect(t *testing.T) {
	assert.ErrorIs(t, mustAffect(pgconn.NewCommandTag("UPDATE 0"), nil), domain.ErrNotFound)
	assert.NoError(t, mustAffect(pgconn.NewCommandTag("UPDATE 1"), nil))
}

func TestNoRows(t *testing.T) {
	v := 3
	got, err := noRows(&v, pgx.ErrNoRows)
	assert.NoError(t, err)
	assert.Nil(t, got)
	got, err = noRows(&v, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, *got)
}

func TestLimitArg(t *testing.T) {
	assert.Nil(t, limitArg(0))
	assert.Equal(t, 10, limitArg(10))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}
