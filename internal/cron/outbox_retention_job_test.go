package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
)

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, passthroughTx{})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", outboxMinAttempts, repo.minAttempts)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{err: errors.New("boom")}, passthroughTx{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutboxRetentionJobAgainstSQLite(t *testing.T) {
	client, conn := dbtest.OpenClient(t)
	repo := outbox.NewRepository(conn)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)

	insert := func(created time.Time, published *time.Time) {
		row := models.OutboxEvent{
			EventType:     enums.EventSaleRecorded,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     created,
			PublishedAt:   published,
			AttemptCount:  1,
		}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	insert(old, &old)
	insert(old, nil)
	recent := now.Add(-time.Hour)
	insert(recent, &recent)

	job := newOutboxRetentionJob(t, repo, client)
	job.now = func() time.Time { return now }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var remaining int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected unpublished and recent rows to survive, %d left", remaining)
	}
}

func newOutboxRetentionJob(t *testing.T, repo outboxRetentionRepo, runner txRunner) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         runner,
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func (f *fakeOutboxRetentionRepo) CountPending(context.Context) (int64, error) { return 0, nil }

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
