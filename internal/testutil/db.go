package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/models"
)

// OpenDB opens an in-memory SQLite database with the schema loaded.
// It is closed when the test ends.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.InitDB(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateUsers mirrors one user per id, named "user<id>".
func CreateUsers(t testing.TB, db *sqlx.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		u := &models.User{
			ID:        id,
			Name:      fmt.Sprintf("user%d", id),
			Email:     fmt.Sprintf("user%d@example.com", id),
			CreatedAt: time.Now(),
		}
		require.NoError(t, database.UpsertUser(context.Background(), db, u))
	}
}

// RequireCapacityInvariant fails the test unless the game's current_capacity
// equals its number of going RSVPs and lies within [0, max_capacity].
func RequireCapacityInvariant(t testing.TB, db *sqlx.DB, gameID int64) *models.Game {
	t.Helper()
	ctx := context.Background()
	game, err := database.GetGameByID(ctx, db, gameID)
	require.NoError(t, err)
	going, err := database.CountGoingRSVPs(ctx, db, gameID)
	require.NoError(t, err)

	require.Equal(t, going, game.CurrentCapacity, "current_capacity must equal the number of going RSVPs")
	require.GreaterOrEqual(t, game.CurrentCapacity, 0)
	require.LessOrEqual(t, game.CurrentCapacity, game.MaxCapacity)
	return game
}

// PostgresDSNEnv names the variable holding a disposable Postgres database for
// tests that need real row locks.
const PostgresDSNEnv = "PICKUP_TEST_POSTGRES_DSN"

// OpenPostgres connects to the database named by PICKUP_TEST_POSTGRES_DSN and
// resets it, or skips the test when the variable is unset. The tables are
// dropped again when the test ends.
func OpenPostgres(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	db, err := database.InitDB(database.DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Reset(context.Background(), db))
	t.Cleanup(func() {
		database.Reset(context.Background(), db)
		db.Close()
	})
	return db
}
