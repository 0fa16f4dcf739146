package postgres

import (
	"testing"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	t.Run("discrete params", func(t *testing.T) {
		dsn := DSN(&cfg.PGDBCfg{
			Host: "db", Port: "5432", User: "u", Password: "p", DBName: "supermercado", SSLMode: "disable",
		})
		assert.Equal(t, "host=db port=5432 user=u password=p dbname=supermercado sslmode=disable", dsn)
	})

	t.Run("url wins and scheme is normalized", func(t *testing.T) {
		dsn := DSN(&cfg.PGDBCfg{URL: "postgres://u:p@db:5432/x", Host: "ignored"})
		assert.Equal(t, "postgresql://u:p@db:5432/x", dsn)
	})
}
