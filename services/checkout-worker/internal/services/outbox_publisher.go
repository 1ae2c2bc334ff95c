package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/database"
	kafkautils "github.com/cartfuse/checkout-core/pkg/kafka"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/services/checkout-worker/configs"
	"github.com/cartfuse/checkout-core/services/checkout-worker/internal/observability"
)

// OutboxPublisher drains staged events to Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED so several workers can drain the same table, and a
// row is only deleted once the broker confirmed its event.
type OutboxPublisher struct {
	ctx      context.Context
	logger   *zap.Logger
	cnf      *configs.Config
	db       *database.DB
	outbox   repositories.OutboxRepository
	producer kafkautils.Publisher
}

type OutboxPublisherConfig struct {
	Context  context.Context
	Logger   *zap.Logger
	Config   *configs.Config
	DB       *database.DB
	Outbox   repositories.OutboxRepository
	Producer kafkautils.Publisher
}

func NewOutboxPublisher(cnf OutboxPublisherConfig) *OutboxPublisher {
	return &OutboxPublisher{
		ctx:      cnf.Context,
		logger:   cnf.Logger,
		cnf:      cnf.Config,
		db:       cnf.DB,
		outbox:   cnf.Outbox,
		producer: cnf.Producer,
	}
}

// Start launches the drain loop and returns a close func that blocks until
// the loop has exited.
func (p *OutboxPublisher) Start() func() {
	done := make(chan struct{})
	go p.run(done)
	p.logger.Info("outbox publisher started",
		zap.Int("batch_size", p.cnf.OutboxBatchSize),
		zap.Duration("poll_interval", p.cnf.OutboxPollInterval),
	)
	return func() { <-done }
}

func (p *OutboxPublisher) run(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.cnf.OutboxPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("outbox publisher stopping")
			return
		case <-ticker.C:
			if err := p.drainOnce(p.ctx); err != nil {
				if p.ctx.Err() != nil {
					return
				}
				p.logger.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// drainOnce publishes one claimed batch in insertion order. A publish failure
// stops the batch so per-key ordering survives; rows already confirmed are
// still deleted and the rest are retried on the next tick.
func (p *OutboxPublisher) drainOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		observability.OutboxBatchDuration.Observe(time.Since(start).Seconds())
	}()

	return p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		events, err := p.outbox.FetchPending(ctx, tx, p.cnf.OutboxBatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		published := p.publishBatch(ctx, events)
		if len(published) > 0 {
			p.logger.Info("outbox batch published", zap.Int("count", len(published)))
		}
		return p.outbox.Delete(ctx, tx, published)
	})
}

// publishBatch sends events in insertion order and returns the ids the broker
// confirmed. It stops at the first failure: skipping past it would let a later
// event with the same key overtake an earlier one.
func (p *OutboxPublisher) publishBatch(ctx context.Context, events []models.OutboxEvent) []int64 {
	published := make([]int64, 0, len(events))
	for _, ev := range events {
		if err := p.producer.Publish(ctx, ev.Topic, []byte(ev.Key), ev.Payload); err != nil {
			observability.OutboxPublishFailed.WithLabelValues(ev.Topic).Inc()
			p.logger.Error("outbox publish failed",
				zap.Int64("outbox_id", ev.ID),
				zap.String("topic", ev.Topic),
				zap.Error(err),
			)
			break
		}
		published = append(published, ev.ID)
		observability.OutboxPublished.WithLabelValues(ev.Topic).Inc()
	}
	return published
}
