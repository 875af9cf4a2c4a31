package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PriceRefreshJob keeps the price stream warm.
type PriceRefreshJob struct {
	Refresher interface {
		Refresh(ctx context.Context) error
	}
	Log zerolog.Logger
}

// Name implements Job.
func (j *PriceRefreshJob) Name() string { return "price-refresh" }

// Run implements Job.
func (j *PriceRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return j.Refresher.Refresh(ctx)
}

// HistoryPruneJob drops superseded balance history rows.
type HistoryPruneJob struct {
	Store interface {
		Prune(keep int) (int64, error)
	}
	Keep int
	Log  zerolog.Logger
}

// Name implements Job.
func (j *HistoryPruneJob) Name() string { return "history-prune" }

// Run implements Job.
func (j *HistoryPruneJob) Run() error {
	removed, err := j.Store.Prune(j.Keep)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.Log.Info().Int64("removed", removed).Msg("Pruned balance history rows")
	}
	return nil
}

// ResponsePruneJob ages out cached RPC responses.
type ResponsePruneJob struct {
	Store interface {
		PruneResponsesBefore(cutoff time.Time) (int64, error)
	}
	MaxAge time.Duration
	Log    zerolog.Logger
}

// Name implements Job.
func (j *ResponsePruneJob) Name() string { return "rpc-response-prune" }

// Run implements Job.
func (j *ResponsePruneJob) Run() error {
	removed, err := j.Store.PruneResponsesBefore(time.Now().Add(-j.MaxAge))
	if err != nil {
		return err
	}
	if removed > 0 {
		j.Log.Info().Int64("removed", removed).Msg("Pruned cached RPC responses")
	}
	return nil
}

// BackupJob ships a snapshot of the data directory offsite.
type BackupJob struct {
	Backups interface {
		Backup(ctx context.Context) (string, error)
	}
	Log zerolog.Logger
}

// Name implements Job.
func (j *BackupJob) Name() string { return "offsite-backup" }

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	key, err := j.Backups.Backup(ctx)
	if err != nil {
		return err
	}
	j.Log.Info().Str("key", key).Msg("Snapshot uploaded")
	return nil
}
