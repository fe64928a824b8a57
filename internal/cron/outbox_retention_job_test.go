package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

type fakeRetentionRunner struct{}

func (fakeRetentionRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRetentionRepo struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttempts
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

func newRetentionJob(t *testing.T, repo *fakeRetentionRepo, retention time.Duration, now time.Time) Job {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logg,
		DB:         fakeRetentionRunner{},
		Repository: repo,
		Retention:  retention,
		NowFunc:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	return job
}

func TestOutboxRetentionDeletesBeforeCutoff(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{deleted: 7}
	job := newRetentionJob(t, repo, 48*time.Hour, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-48 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", repo.cutoff, want)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("minAttempts = %d, want %d", repo.minAttempts, outboxMinAttempts)
	}
}

func TestOutboxRetentionDefaultWindow(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{}
	job := newRetentionJob(t, repo, 0, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", repo.cutoff, want)
	}
}

func TestOutboxRetentionSurfacesDeleteError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("boom")}
	job := newRetentionJob(t, repo, time.Hour, time.Now())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
