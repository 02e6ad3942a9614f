package history

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruner_RunOnceRemovesStaleEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProgress(ctx, "/media/a.mkv", time.Second, 0))

	p := NewPruner(store, cron.New(), "0 4 * * *", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	p.runOnce(ctx)

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPruner_ScheduleRejectsZeroRetention(t *testing.T) {
	store := newTestStore(t)

	p := NewPruner(store, cron.New(), "0 4 * * *", 0)
	require.Error(t, p.Schedule(context.Background()))
}

func TestPruner_ScheduleRejectsBadExpr(t *testing.T) {
	store := newTestStore(t)

	p := NewPruner(store, cron.New(), "not-a-cron", 24*time.Hour)
	require.Error(t, p.Schedule(context.Background()))
}
