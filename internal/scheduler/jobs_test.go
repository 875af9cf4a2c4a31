package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return f.err
}

type fakePruner struct {
	gotKeep int
	removed int64
	err     error
}

func (f *fakePruner) Prune(keep int) (int64, error) {
	f.gotKeep = keep
	return f.removed, f.err
}

type fakeResponsePruner struct {
	gotCutoff time.Time
	removed   int64
}

func (f *fakeResponsePruner) PruneResponsesBefore(cutoff time.Time) (int64, error) {
	f.gotCutoff = cutoff
	return f.removed, nil
}

type fakeBackups struct {
	key string
	err error
}

func (f *fakeBackups) Backup(context.Context) (string, error) {
	return f.key, f.err
}

func TestPriceRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{}
	job := &PriceRefreshJob{Refresher: refresher, Log: zerolog.Nop()}

	assert.Equal(t, "price-refresh", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, refresher.calls)

	refresher.err = fmt.Errorf("all sources down")
	assert.Error(t, job.Run())
}

func TestHistoryPruneJob(t *testing.T) {
	pruner := &fakePruner{removed: 7}
	job := &HistoryPruneJob{Store: pruner, Keep: 3, Log: zerolog.Nop()}

	assert.Equal(t, "history-prune", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 3, pruner.gotKeep)
}

func TestResponsePruneJobCutoff(t *testing.T) {
	pruner := &fakeResponsePruner{removed: 2}
	job := &ResponsePruneJob{Store: pruner, MaxAge: 24 * time.Hour, Log: zerolog.Nop()}

	require.NoError(t, job.Run())
	expected := time.Now().Add(-24 * time.Hour)
	assert.WithinDuration(t, expected, pruner.gotCutoff, time.Minute)
}

func TestBackupJob(t *testing.T) {
	job := &BackupJob{Backups: &fakeBackups{key: "snapshots/x.tar.gz"}, Log: zerolog.Nop()}
	assert.Equal(t, "offsite-backup", job.Name())
	require.NoError(t, job.Run())

	job = &BackupJob{Backups: &fakeBackups{err: fmt.Errorf("bucket gone")}, Log: zerolog.Nop()}
	assert.Error(t, job.Run())
}

func TestSchedulerJobsListing(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 45s", &PriceRefreshJob{Refresher: &fakeRefresher{}, Log: zerolog.Nop()}))
	require.NoError(t, s.AddJob("@daily", &HistoryPruneJob{Store: &fakePruner{}, Keep: 3, Log: zerolog.Nop()}))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "price-refresh", jobs[0].Name)
	assert.Equal(t, "@every 45s", jobs[0].Schedule)
}
