package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

func seedEvent(t *testing.T, repo *Repository, created time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSaleRecorded,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     created,
	}
	require.NoError(t, repo.Insert(repo.db, row))
	return row
}

func TestFetchUnpublishedOrdersAndFilters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	second := seedEvent(t, repo, base.Add(time.Minute))
	first := seedEvent(t, repo, base)
	exhausted := seedEvent(t, repo, base.Add(-time.Minute))
	require.NoError(t, repo.MarkTerminalTx(conn, exhausted.ID, errors.New("gone"), 3))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID))
	require.NoError(t, repo.MarkFailedTx(conn, second.ID, errors.New("timeout")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "timeout", *rows[0].LastError)

	pending, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	old := seedEvent(t, repo, now.Add(-48*time.Hour))
	fresh := seedEvent(t, repo, now)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", old.ID).
		Update("published_at", now.Add(-40*24*time.Hour)).Error)
	require.NoError(t, repo.MarkPublishedTx(conn, fresh.ID))

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, now.Add(-30*24*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}

func TestDLQRepositoryRoundTrip(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()

	missing, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventSaleRecorded,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}))

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxLastErrorLen)

	list, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
