package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// errNoPublisher marks rows whose topic has no publisher; they are dead-lettered without a retry.
var errNoPublisher = errors.New("publisher not configured")

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicLister is implemented by registries that can enumerate their sales and inventory topics.
type topicLister interface {
	Topics() []string
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// relayOutcome is what a single outbox row ended up as after one pass.
type relayOutcome int

const (
	outcomePublished relayOutcome = iota
	outcomeRetry
	outcomeDeadLettered
)

type batchTally struct {
	published    int
	retried      int
	deadLettered int
}

func (b *batchTally) add(o relayOutcome) {
	switch o {
	case outcomePublished:
		b.published++
	case outcomeRetry:
		b.retried++
	case outcomeDeadLettered:
		b.deadLettered++
	}
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
}

// Service relays sale and inventory events from the outbox table to Pub/Sub.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = cachedPublishers(params.PubSub)
	}

	outboxCfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		batchSize:        positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

// cachedPublishers keeps one Publisher per topic; each owns its own batching goroutines.
func cachedPublishers(client pubSubClient) publisherFactory {
	cache := map[string]publisher{}
	return func(topic string) publisher {
		if cached, ok := cache[topic]; ok {
			return cached
		}
		pub := wrapPublisher(client.Publisher(topic))
		if pub == nil {
			return nil
		}
		cache[topic] = pub
		return pub
	}
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}

	if lister, ok := s.registry.(topicLister); ok {
		topics := lister.Topics()
		for _, topic := range topics {
			if s.publisherFactory(topic) == nil {
				s.logg.Warn(s.logg.WithField(ctx, "topic", topic), "no publisher for topic; its events will be dead-lettered")
			}
		}
		s.logg.Info(s.logg.WithField(ctx, "topics", topics), "relaying sale and inventory events")
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox relay batch failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, jittered(backoff)); err != nil {
				return err
			}
		case processed:
			backoff = s.pollInterval
		default:
			backoff = s.pollInterval
			if err := s.sleep(ctx, jittered(s.pollInterval)); err != nil {
				return err
			}
		}
	}
}

// processBatch claims up to batchSize rows and relays each one inside the claiming transaction.
// It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var tally batchTally
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			outcome, err := s.relay(ctx, tx, row)
			if err != nil {
				return err
			}
			tally.add(outcome)
		}
		return nil
	})

	claimed := tally.published + tally.retried + tally.deadLettered
	if err == nil && claimed > 0 {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"published":     tally.published,
			"retried":       tally.retried,
			"dead_lettered": tally.deadLettered,
		}), "outbox batch relayed")
	}
	return claimed > 0, err
}

// relay publishes one row and records the result. Only bookkeeping failures are returned;
// publish failures become a retry or a dead letter.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (relayOutcome, error) {
	ctx = s.rowContext(ctx, row)

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":       resolved.Descriptor.Topic,
		"event_id":    resolved.Envelope.EventID,
		"occurred_at": resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	err = s.publish(ctx, row, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, row.ID); markErr != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", row.ID, markErr)
		}
		s.logg.Info(ctx, aggregateLabel(row.AggregateType)+" event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	switch {
	case errors.Is(err, errNoPublisher):
		return outcomeDeadLettered, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNoTopic, err)
	case errors.As(err, &nonRetry):
		return outcomeDeadLettered, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}

	attempt := row.AttemptCount + 1
	if attempt >= s.maxAttempts {
		giveUp := fmt.Errorf("gave up after %d publish attempts: %w", attempt, err)
		return outcomeDeadLettered, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, giveUp)
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"attempt": attempt,
		"error":   err.Error(),
	}), aggregateLabel(row.AggregateType)+" event publish failed; will retry")
	if markErr := s.repo.MarkFailedTx(tx, row.ID, err); markErr != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", row.ID, markErr)
	}
	return outcomeRetry, nil
}

// rowContext tags the log context with the sale or product the row is about.
func (s *Service) rowContext(ctx context.Context, row models.OutboxEvent) context.Context {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"attempt_count": row.AttemptCount,
	})
	if row.LastError != nil {
		ctx = s.logg.WithField(ctx, "last_error", *row.LastError)
	}
	switch row.AggregateType {
	case enums.AggregateSale:
		return s.logg.WithSaleID(ctx, row.AggregateID.String())
	case enums.AggregateProduct:
		return s.logg.WithProductID(ctx, row.AggregateID.String())
	default:
		return s.logg.WithField(ctx, "aggregate_id", row.AggregateID.String())
	}
}

func aggregateLabel(t enums.OutboxAggregateType) string {
	switch t {
	case enums.AggregateSale:
		return "sale"
	case enums.AggregateProduct:
		return "inventory"
	default:
		return "outbox"
	}
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	message := cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"dlq_reason": reason,
		"error":      message,
	}), aggregateLabel(row.AggregateType)+" event dead-lettered")

	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return fmt.Errorf("%w for topic %q", errNoPublisher, topic)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: messageAttributes(row, resolved),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// messageAttributes lets subscribers filter by event type or by the sale/product id without decoding the body.
func messageAttributes(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
	}
	switch row.AggregateType {
	case enums.AggregateSale:
		attrs["sale_id"] = row.AggregateID.String()
	case enums.AggregateProduct:
		attrs["product_id"] = row.AggregateID.String()
	}
	return attrs
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &topicPublisher{Publisher: p}
}

// topicPublisher narrows a *pubsub.Publisher to the publisher interface.
type topicPublisher struct {
	*gcppubsub.Publisher
}

func (p *topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &topicResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type topicResult struct {
	*gcppubsub.PublishResult
}

func (r *topicResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
