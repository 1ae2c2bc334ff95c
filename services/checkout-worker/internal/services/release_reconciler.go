package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/clients"
	"github.com/cartfuse/checkout-core/pkg/dtos"
	kafkautils "github.com/cartfuse/checkout-core/pkg/kafka"
	"github.com/cartfuse/checkout-core/pkg/reconcile"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/services/checkout-worker/configs"
	"github.com/cartfuse/checkout-core/services/checkout-worker/internal/observability"
)

const dequeueTimeout = 5 * time.Second

// ReleaseReconciler retries reservation releases that failed during checkout
// compensation. Each job carries its attempt count; once the budget is spent
// the job goes to the dead letter topic for an operator.
type ReleaseReconciler struct {
	ctx       context.Context
	logger    *zap.Logger
	cnf       *configs.Config
	queue     reconcile.Queue
	inventory clients.InventoryClient
	producer  kafkautils.Publisher
}

type ReleaseReconcilerConfig struct {
	Context   context.Context
	Logger    *zap.Logger
	Config    *configs.Config
	Queue     reconcile.Queue
	Inventory clients.InventoryClient
	Producer  kafkautils.Publisher
}

func NewReleaseReconciler(cnf ReleaseReconcilerConfig) *ReleaseReconciler {
	return &ReleaseReconciler{
		ctx:       cnf.Context,
		logger:    cnf.Logger,
		cnf:       cnf.Config,
		queue:     cnf.Queue,
		inventory: cnf.Inventory,
		producer:  cnf.Producer,
	}
}

// Start launches the reconciliation loop and returns a close func that blocks
// until the loop has exited.
func (r *ReleaseReconciler) Start() func() {
	done := make(chan struct{})
	go r.run(done)
	r.logger.Info("release reconciler started",
		zap.Int("max_attempts", r.cnf.MaxReleaseAttempts),
		zap.Duration("base_backoff", r.cnf.ReleaseBaseBackoff),
	)
	return func() { <-done }
}

func (r *ReleaseReconciler) run(done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("release reconciler stopping")
			return
		default:
		}

		job, ok, err := r.queue.Dequeue(r.ctx, dequeueTimeout)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to read release queue", zap.Error(err))
			r.sleep(dequeueTimeout)
			continue
		}
		r.reportDepth()
		if !ok {
			continue
		}
		r.process(job)
	}
}

func (r *ReleaseReconciler) process(job dtos.ReleaseTicketDto) {
	traceID := uuid.New().String()

	err := r.inventory.Release(r.ctx, traceID, job.Ticket)
	if err == nil {
		observability.ReleasesReconciled.Inc()
		r.logger.Info("parked release reconciled",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.Ticket, job.Ticket),
			zap.String(pkg.Sku, job.Sku),
			zap.Int("attempts", job.Attempts),
		)
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	r.logger.Warn("release attempt failed",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.Ticket, job.Ticket),
		zap.Int("attempts", job.Attempts),
		zap.Error(err),
	)

	if job.Attempts >= r.cnf.MaxReleaseAttempts {
		r.deadLetter(job)
		return
	}

	observability.ReleaseRetries.Inc()
	r.sleep(utils.CalculateExponentialBackoffWithJitter(job.Attempts, r.cnf.ReleaseBaseBackoff, r.cnf.ReleaseMaxBackoff))
	if err = r.queue.Enqueue(r.ctx, job); err != nil {
		r.logger.Error("failed to requeue release job, dead lettering",
			zap.String(pkg.Ticket, job.Ticket),
			zap.Error(err),
		)
		r.deadLetter(job)
	}
}

func (r *ReleaseReconciler) deadLetter(job dtos.ReleaseTicketDto) {
	raw, err := json.Marshal(job)
	if err != nil {
		r.logger.Error("failed to encode dead letter", zap.String(pkg.Ticket, job.Ticket), zap.Error(err))
		return
	}
	if err = r.producer.Publish(r.ctx, dtos.TopicReleaseDLQ, []byte(job.Ticket), raw); err != nil {
		r.logger.Error("failed to publish dead letter",
			zap.String(pkg.Ticket, job.Ticket),
			zap.Error(err),
		)
		return
	}
	observability.ReleasesDeadLettered.Inc()
	r.logger.Error("release job dead lettered",
		zap.String(pkg.Ticket, job.Ticket),
		zap.String(pkg.Sku, job.Sku),
		zap.Int("attempts", job.Attempts),
		zap.String("last_error", job.LastError),
	)
}

func (r *ReleaseReconciler) reportDepth() {
	depth, err := r.queue.Size(r.ctx)
	if err != nil {
		return
	}
	observability.ReleaseQueueDepth.Set(float64(depth))
}

// sleep waits the given delay but returns early on shutdown.
func (r *ReleaseReconciler) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.ctx.Done():
	case <-t.C:
	}
}
