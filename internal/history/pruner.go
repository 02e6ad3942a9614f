package history

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/afanty2021/DashPlayer/pkg/icron"
	"github.com/afanty2021/DashPlayer/pkg/log"
)

// Pruner removes stale watch-history entries on a cron schedule.
type Pruner struct {
	store     *SQLiteStore
	cron      *cron.Cron
	cronExpr  string
	retention time.Duration

	group singleflight.Group
}

func NewPruner(store *SQLiteStore, c *cron.Cron, cronExpr string, retention time.Duration) *Pruner {
	return &Pruner{
		store:     store,
		cron:      c,
		cronExpr:  cronExpr,
		retention: retention,
	}
}

// Schedule registers the prune job. Overlapping triggers collapse into
// one run.
func (p *Pruner) Schedule(ctx context.Context) error {
	if p.retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}

	_, err := p.cron.AddFunc(p.cronExpr, func() {
		_, _, _ = p.group.Do("prune", func() (any, error) {
			p.runOnce(ctx)
			return nil, nil
		})
	})
	if err != nil {
		return err
	}

	if info, err := icron.NextTrigger(p.cronExpr, time.Now()); err == nil {
		log.Info("Watch-history prune scheduled, next run at %s (in %s)",
			info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
	}
	return nil
}

func (p *Pruner) runOnce(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	removed, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Error("Failed to prune watch history: %v", err)
		return
	}
	if removed > 0 {
		log.Info("Pruned %d watch-history entries older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
