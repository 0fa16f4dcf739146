package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []*usecase.OutboxEvent
	processed []int64
	requeued  []int64
	failed    []int64
	released  int64
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, event)
	return event, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	batch := f.pending[:limit]
	f.pending = f.pending[limit:]
	return batch, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkAsPending(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued = append(f.requeued, id)
	return nil
}

func (f *fakeOutboxRepo) MarkAsFailed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutboxRepo) ReleaseStale(_ context.Context, _ time.Duration) (int64, error) {
	return f.released, nil
}

type fakeProducer struct {
	failFor map[int64]error
	sent    []int64
}

func (f *fakeProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	if err, ok := f.failFor[req.ProductID]; ok {
		return err
	}
	f.sent = append(f.sent, req.ProductID)
	return nil
}

func newEvents(n int) []*usecase.OutboxEvent {
	events := make([]*usecase.OutboxEvent, n)
	for i := range events {
		events[i] = &usecase.OutboxEvent{ID: int64(i + 1), ProductID: int64(100 + i), Status: usecase.Processing}
	}
	return events
}

func TestOutboxWorkerDrainSendsAllBatches(t *testing.T) {
	repo := &fakeOutboxRepo{pending: newEvents(5)}
	producer := &fakeProducer{}
	w := NewOutboxWorker(repo, logger.NewSlogLogger(logger.WithWriter(io.Discard)), producer, 2, "")

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sent)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, repo.processed)
	assert.Equal(t, []int64{100, 101, 102, 103, 104}, producer.sent)
	assert.Empty(t, repo.requeued)
}

func TestOutboxWorkerRequeuesFailedEvents(t *testing.T) {
	repo := &fakeOutboxRepo{pending: newEvents(4)}
	producer := &fakeProducer{failFor: map[int64]error{101: errors.New("dial tcp: connection refused")}}
	w := NewOutboxWorker(repo, logger.NewSlogLogger(logger.WithWriter(io.Discard)), producer, 2, "")

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)

	// после неудачи пачка не продолжается, остаток ждёт следующего запуска
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{2}, repo.requeued)
	assert.Len(t, repo.pending, 2)
}

func TestOutboxWorkerReleaseStale(t *testing.T) {
	repo := &fakeOutboxRepo{released: 3}
	w := NewOutboxWorker(repo, logger.NewSlogLogger(logger.WithWriter(io.Discard)), &fakeProducer{}, 0, "")

	n, err := w.ReleaseStale(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestOutboxWorkerMarksRejectedEventsFailed(t *testing.T) {
	repo := &fakeOutboxRepo{pending: newEvents(4)}
	producer := &fakeProducer{failFor: map[int64]error{
		101: fmt.Errorf("write: %w", kafka.MessageSizeTooLarge),
	}}
	w := NewOutboxWorker(repo, logger.NewSlogLogger(logger.WithWriter(io.Discard)), producer, 2, "")

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)

	// отвергнутое событие не возвращается в очередь и не останавливает обработку
	assert.Equal(t, 3, sent)
	assert.Equal(t, []int64{2}, repo.failed)
	assert.Empty(t, repo.requeued)
	assert.Equal(t, []int64{1, 3, 4}, repo.processed)
	assert.Empty(t, repo.pending)
}

func TestIsPermanentError(t *testing.T) {
	assert.False(t, isPermanentError(nil))
	assert.False(t, isPermanentError(errors.New("dial tcp 10.0.0.1:9092: i/o timeout")))
	assert.False(t, isPermanentError(fmt.Errorf("write: %w", kafka.LeaderNotAvailable)))
	assert.False(t, isPermanentError(context.DeadlineExceeded))

	assert.True(t, isPermanentError(fmt.Errorf("write: %w", kafka.InvalidMessage)))
	assert.True(t, isPermanentError(kafka.MessageTooLargeError{}))
	assert.True(t, isPermanentError(kafka.WriteErrors{kafka.MessageSizeTooLarge}))
	assert.False(t, isPermanentError(kafka.WriteErrors{kafka.MessageSizeTooLarge, kafka.RequestTimedOut}))
	assert.False(t, isPermanentError(kafka.WriteErrors{nil}))
}
