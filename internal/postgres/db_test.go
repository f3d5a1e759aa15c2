package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://app:secret@db:5432/s?sslmode=disable", migrateURL("postgres://app:secret@db:5432/s?sslmode=disable"))
	assert.Equal(t, "pgx5://db/s", migrateURL("postgresql://db/s"))
	assert.Equal(t, "pgx5://db/s", migrateURL("pgx5://db/s"))
}
