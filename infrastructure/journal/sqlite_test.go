package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ponder/internal/domain"
)

func openTemp(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func decision(owner domain.Entity, tick uint64, action string, value float64) domain.Decision {
	return domain.Decision{
		Owner:     owner,
		Action:    action,
		Value:     value,
		Picked:    action != "wander",
		Fallback:  action == "wander",
		Picker:    "highest_score",
		Tick:      tick,
		Timestamp: time.Unix(1700000000, int64(tick)),
	}
}

func TestSQLiteJournal_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	j, _ := openTemp(t)

	require.NoError(t, j.Record(ctx, 1, []domain.Decision{
		decision(1, 1, "eat", 0.8),
		decision(2, 1, "wander", 0),
	}))
	require.NoError(t, j.Record(ctx, 2, []domain.Decision{
		decision(1, 2, "sleep", 0.6),
		decision(2, 2, "eat", 0.9),
	}))
	require.NoError(t, j.Record(ctx, 3, []domain.Decision{
		decision(1, 3, "wander", 0),
	}))

	tests := []struct {
		name    string
		owner   domain.Entity
		limit   int
		actions []string
		ticks   []uint64
	}{
		{name: "all of owner 1", owner: 1, limit: 0, actions: []string{"eat", "sleep", "wander"}, ticks: []uint64{1, 2, 3}},
		{name: "latest two of owner 1", owner: 1, limit: 2, actions: []string{"sleep", "wander"}, ticks: []uint64{2, 3}},
		{name: "owner 2", owner: 2, limit: 10, actions: []string{"wander", "eat"}, ticks: []uint64{1, 2}},
		{name: "unknown owner", owner: 99, limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.Decisions(ctx, tt.owner, tt.limit)
			require.NoError(t, err)
			require.Len(t, got, len(tt.actions))
			for i, d := range got {
				assert.Equal(t, tt.owner, d.Owner)
				assert.Equal(t, tt.actions[i], d.Action)
				assert.Equal(t, tt.ticks[i], d.Tick)
			}
		})
	}

	got, err := j.Decisions(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	want := decision(1, 3, "wander", 0)
	assert.True(t, got[0].Fallback)
	assert.False(t, got[0].Picked)
	assert.Equal(t, "highest_score", got[0].Picker)
	assert.True(t, want.Timestamp.Equal(got[0].Timestamp))
}

func TestSQLiteJournal_EmptyTick(t *testing.T) {
	j, _ := openTemp(t)
	require.NoError(t, j.Record(context.Background(), 1, nil))

	got, err := j.Decisions(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteJournal_RunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	first, path := openTemp(t)
	require.NoError(t, first.Record(ctx, 1, []domain.Decision{decision(1, 1, "eat", 0.7)}))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.RunID(), second.RunID())

	got, err := second.Decisions(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, got, "a new run starts with no history")

	require.NoError(t, second.Record(ctx, 1, []domain.Decision{decision(1, 1, "sleep", 0.4)}))
	got, err = second.Decisions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sleep", got[0].Action)
}

func TestSQLiteJournal_Closed(t *testing.T) {
	j, _ := openTemp(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Record(context.Background(), 1, nil), ErrClosed)
	_, err := j.Decisions(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyValue)

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()
	j, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(ctx, 1, []domain.Decision{decision(3, 1, "eat", 1)}))
	got, err := j.Decisions(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
