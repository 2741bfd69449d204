package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/Guizzs26/tradebook/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	var cfg config.Config
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "db"
	cfg.Database.Port = 5432
	cfg.Database.Name = "tradebook"
	cfg.Database.SSLMode = "disable"

	assert.Equal(t, "postgres://u:p@db:5432/tradebook?sslmode=disable", DSN(cfg))
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, name := range files {
		body, err := fs.ReadFile(migrationsFS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}

	users, err := fs.ReadFile(migrationsFS, "migrations/00001_create_users.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(users), "NOT NULL UNIQUE"))
}
