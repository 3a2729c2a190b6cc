package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder_PlaceholdersNumerados(t *testing.T) {
	var w whereBuilder
	assert.Empty(t, w.sql())

	w.add("branch_id = $%d", "b1")
	w.add("status = $%d", "APPROVED")
	limit := w.next(20)

	assert.Equal(t, " WHERE branch_id = $1 AND status = $2", w.sql())
	assert.Equal(t, "$3", limit)
	assert.Equal(t, []any{"b1", "APPROVED", 20}, w.args)
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "sales_invoice_number_key"}
	assert.True(t, isUniqueViolation(fmt.Errorf("insert sale: %w", pgErr)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

func TestValidIDs(t *testing.T) {
	assert.True(t, validIDs(uuid.NewString(), ""))
	assert.False(t, validIDs(uuid.NewString(), "p-arroz"))
}

func TestArgsOpcionales(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", nullIfEmpty("x"))
	assert.Nil(t, limitArg(0))
	assert.Equal(t, 50, limitArg(50))
}
