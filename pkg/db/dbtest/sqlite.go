// Package dbtest opens isolated in-memory databases for repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
)

// New returns a client over a fresh in-memory sqlite database with every
// model migrated. Each call gets its own database.
func New(t testing.TB) *db.Client {
	t.Helper()
	dsn := "file:restaurant_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
