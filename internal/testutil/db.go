// Package testutil provides shared helpers for package tests.
package testutil

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barsik-modbot-go/internal/config"
	"github.com/barsik-modbot-go/internal/storage"
)

// OpenDB returns an isolated in-memory database migrated with the full
// schema. A single connection is shared so concurrent test writers serialize
// instead of tripping over sqlite's locking.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}

	db, err := storage.Connect(&cfg, QuietLogger())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// QuietLogger returns a logrus logger that discards everything.
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
