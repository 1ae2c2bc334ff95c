package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/clients"
	"github.com/cartfuse/checkout-core/pkg/dtos"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/services/checkout-worker/configs"
)

type memQueue struct {
	mu         sync.Mutex
	jobs       []dtos.ReleaseTicketDto
	enqueueErr error
}

func (q *memQueue) Enqueue(_ context.Context, job dtos.ReleaseTicketDto) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, _ time.Duration) (dtos.ReleaseTicketDto, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return dtos.ReleaseTicketDto{}, false, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true, nil
}

func (q *memQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

type releaseInventory struct {
	mu       sync.Mutex
	err      error
	released []string
}

func (f *releaseInventory) Reserve(_ context.Context, _ string, sku string, quantity int64) (clients.Reservation, error) {
	return clients.Reservation{Ticket: "tkt-" + sku, Sku: sku, Quantity: quantity}, nil
}

func (f *releaseInventory) Release(_ context.Context, _ string, ticket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, ticket)
	return f.err
}

func (f *releaseInventory) releasedTickets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type message struct {
	topic string
	key   string
	value []byte
}

type capturingProducer struct {
	mu       sync.Mutex
	err      error
	failFrom int // 1-based message index the producer starts failing at, 0 = never
	sent     []message
	attempts int
}

func (p *capturingProducer) Publish(_ context.Context, topic string, key []byte, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failFrom > 0 && p.attempts >= p.failFrom {
		return errors.New("broker unreachable")
	}
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, message{topic: topic, key: string(key), value: value})
	return nil
}

func (p *capturingProducer) Close() {}

func workerConfig() *configs.Config {
	return &configs.Config{
		MaxReleaseAttempts: 3,
		ReleaseBaseBackoff: time.Millisecond,
		ReleaseMaxBackoff:  2 * time.Millisecond,
		OutboxBatchSize:    100,
		OutboxPollInterval: time.Millisecond,
	}
}

func newReconciler(queue *memQueue, inventory *releaseInventory, producer *capturingProducer) *ReleaseReconciler {
	return NewReleaseReconciler(ReleaseReconcilerConfig{
		Context:   context.Background(),
		Logger:    zap.NewNop(),
		Config:    workerConfig(),
		Queue:     queue,
		Inventory: inventory,
		Producer:  producer,
	})
}

func TestProcess_ReleaseSucceeds(t *testing.T) {
	queue := &memQueue{}
	inventory := &releaseInventory{}
	producer := &capturingProducer{}
	r := newReconciler(queue, inventory, producer)

	r.process(dtos.ReleaseTicketDto{Ticket: "tkt-1", Sku: "SKU-A", Quantity: 2, Attempts: 1})

	assert.Equal(t, []string{"tkt-1"}, inventory.released)
	assert.Empty(t, queue.jobs)
	assert.Empty(t, producer.sent)
}

func TestProcess_FailureRequeuesWithBumpedAttempt(t *testing.T) {
	queue := &memQueue{}
	inventory := &releaseInventory{err: errors.New("inventory down")}
	producer := &capturingProducer{}
	r := newReconciler(queue, inventory, producer)

	r.process(dtos.ReleaseTicketDto{Ticket: "tkt-1", Sku: "SKU-A", Quantity: 2, Attempts: 1})

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, "tkt-1", job.Ticket)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, "inventory down", job.LastError)
	assert.Empty(t, producer.sent)
}

func TestProcess_ExhaustedJobIsDeadLettered(t *testing.T) {
	queue := &memQueue{}
	inventory := &releaseInventory{err: errors.New("inventory down")}
	producer := &capturingProducer{}
	r := newReconciler(queue, inventory, producer)

	// Attempt 2 of 3 fails, so the bump reaches the budget.
	r.process(dtos.ReleaseTicketDto{Ticket: "tkt-1", Sku: "SKU-A", Quantity: 2, Attempts: 2})

	assert.Empty(t, queue.jobs)
	require.Len(t, producer.sent, 1)
	sent := producer.sent[0]
	assert.Equal(t, dtos.TopicReleaseDLQ, sent.topic)
	assert.Equal(t, "tkt-1", sent.key)

	var dead dtos.ReleaseTicketDto
	require.NoError(t, json.Unmarshal(sent.value, &dead))
	assert.Equal(t, 3, dead.Attempts)
	assert.Equal(t, "inventory down", dead.LastError)
}

func TestProcess_RequeueFailureDeadLetters(t *testing.T) {
	queue := &memQueue{enqueueErr: errors.New("redis down")}
	inventory := &releaseInventory{err: errors.New("inventory down")}
	producer := &capturingProducer{}
	r := newReconciler(queue, inventory, producer)

	r.process(dtos.ReleaseTicketDto{Ticket: "tkt-1", Sku: "SKU-A", Quantity: 2, Attempts: 1})

	// The job could not be parked again, so it must not be lost silently.
	require.Len(t, producer.sent, 1)
	assert.Equal(t, dtos.TopicReleaseDLQ, producer.sent[0].topic)
}

func TestRun_DrainsQueueUntilCancelled(t *testing.T) {
	queue := &memQueue{jobs: []dtos.ReleaseTicketDto{
		{Ticket: "tkt-1", Sku: "SKU-A", Quantity: 1, Attempts: 1},
		{Ticket: "tkt-2", Sku: "SKU-B", Quantity: 1, Attempts: 1},
	}}
	inventory := &releaseInventory{}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReleaseReconciler(ReleaseReconcilerConfig{
		Context:   ctx,
		Logger:    zap.NewNop(),
		Config:    workerConfig(),
		Queue:     queue,
		Inventory: inventory,
		Producer:  &capturingProducer{},
	})

	stop := r.Start()
	assert.Eventually(t, func() bool {
		return len(inventory.releasedTickets()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
	assert.Equal(t, []string{"tkt-1", "tkt-2"}, inventory.releasedTickets())
}

func outboxEvent(id int64, topic string, key string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:      id,
		Topic:   topic,
		Key:     key,
		Payload: json.RawMessage(`{}`),
	}
}

func TestPublishBatch_ConfirmsInOrder(t *testing.T) {
	producer := &capturingProducer{}
	p := NewOutboxPublisher(OutboxPublisherConfig{
		Context:  context.Background(),
		Logger:   zap.NewNop(),
		Config:   workerConfig(),
		Producer: producer,
	})

	published := p.publishBatch(context.Background(), []models.OutboxEvent{
		outboxEvent(1, dtos.TopicOrderCreated, "ord_1"),
		outboxEvent(2, dtos.TopicOrderPaid, "ord_1"),
		outboxEvent(3, dtos.TopicOrderCreated, "ord_2"),
	})

	assert.Equal(t, []int64{1, 2, 3}, published)
	require.Len(t, producer.sent, 3)
	assert.Equal(t, "ord_1", producer.sent[0].key)
	assert.Equal(t, dtos.TopicOrderPaid, producer.sent[1].topic)
}

func TestPublishBatch_StopsAtFirstFailure(t *testing.T) {
	producer := &capturingProducer{failFrom: 2}
	p := NewOutboxPublisher(OutboxPublisherConfig{
		Context:  context.Background(),
		Logger:   zap.NewNop(),
		Config:   workerConfig(),
		Producer: producer,
	})

	published := p.publishBatch(context.Background(), []models.OutboxEvent{
		outboxEvent(1, dtos.TopicOrderCreated, "ord_1"),
		outboxEvent(2, dtos.TopicOrderPaid, "ord_1"),
		outboxEvent(3, dtos.TopicOrderCreated, "ord_2"),
	})

	// Only the confirmed row may be deleted; the third event was never tried,
	// so the paid event cannot be overtaken on its key.
	assert.Equal(t, []int64{1}, published)
	assert.Equal(t, 2, producer.attempts)
	require.Len(t, producer.sent, 1)
	assert.Equal(t, dtos.TopicOrderCreated, producer.sent[0].topic)
}
