package pgdb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestBuildListWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    usecase.ProductFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filters",
			filter:    usecase.ProductFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "category only",
			filter:    usecase.ProductFilter{Category: "Lácteos"},
			wantWhere: " WHERE category = $1",
			wantArgs:  []any{"Lácteos"},
		},
		{
			name:      "search only",
			filter:    usecase.ProductFilter{Search: "milk"},
			wantWhere: " WHERE (name ILIKE $1 OR description ILIKE $1)",
			wantArgs:  []any{"%milk%"},
		},
		{
			name:      "category and escaped search",
			filter:    usecase.ProductFilter{Category: "Bebidas", Search: `50%_off\`},
			wantWhere: " WHERE category = $1 AND (name ILIKE $2 OR description ILIKE $2)",
			wantArgs:  []any{"Bebidas", `%50\%\_off\\%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildListWhere(&tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestPostgresDuplicate(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation})
	assert.True(t, postgresDuplicate(dup))
	assert.False(t, postgresDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, postgresDuplicate(errors.New("boom")))
}
