package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndRecentTurns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	turns := []Turn{
		{SessionKey: "s1", RequestID: "r1", Message: "hola", Response: "buenas", Intent: "unknown", Path: "generated"},
		{SessionKey: "s1", RequestID: "r2", Message: "¿horarios?", Response: "Martes", Intent: "schedule", Path: "template", CourseID: "1"},
		{SessionKey: "s2", RequestID: "r3", Message: "info", Response: "ya finalizó", Intent: "general_info", Path: "refusal", CourseID: "42"},
	}
	for i, turn := range turns {
		turn.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, db.InsertTurn(ctx, turn))
	}

	n, err := db.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recent, err := db.RecentTurns(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].RequestID, "newest first")
	assert.Equal(t, "schedule", recent[0].Intent)
	assert.Equal(t, "1", recent[0].CourseID)
}

func TestRecentTurnsLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, db.InsertTurn(ctx, Turn{
			SessionKey: "s", RequestID: "r", Message: "m", Response: "r",
			Intent: "unknown", Path: "generated",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := db.RecentTurns(ctx, "s", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestPruneTurns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	old := Turn{SessionKey: "s", RequestID: "old", Message: "m", Response: "r",
		Intent: "unknown", Path: "generated", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := Turn{SessionKey: "s", RequestID: "fresh", Message: "m", Response: "r",
		Intent: "unknown", Path: "generated"}
	require.NoError(t, db.InsertTurn(ctx, old))
	require.NoError(t, db.InsertTurn(ctx, fresh))

	removed, err := db.PruneTurns(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	n, err := db.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReady(t *testing.T) {
	db := testDB(t)
	assert.NoError(t, db.Ready(context.Background()))
}
