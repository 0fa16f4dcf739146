package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/jitter"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

const (
	outboxChannel       = "outbox_pending"
	notificationTimeout = 30 * time.Second
	reconnectBase       = 2 * time.Second
	reconnectMax        = 30 * time.Second
)

// OutboxWorker переносит события из outbox_events в Kafka.
// Будится по NOTIFY outbox_pending, а также периодически через Drain из планировщика.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	batchSize int
	dbConnStr string

	mu     sync.Mutex // сериализует обработку пачек между LISTEN и планировщиком
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	batchSize int,
	dbConnStr string,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = 10
	}

	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		batchSize: batchSize,
		dbConnStr: dbConnStr,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// остатки с прошлого запуска
		w.logger.Infof("Draining pending outbox events on startup...")
		if _, err := w.Drain(ctx); err != nil {
			w.logger.Warnf("startup drain failed: %v", err)
		}

		w.listenOutboxNotifications(ctx)
	}()
}

// Stop прерывает ожидание уведомлений и дожидается завершения горутин.
func (w *OutboxWorker) Stop(_ context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	return nil
}

// Drain обрабатывает пачки, пока очередь не опустеет. Возвращает число отправленных событий.
func (w *OutboxWorker) Drain(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := 0
	for {
		sent, hasMore, err := w.processBatch(ctx)
		total += sent
		if err != nil {
			return total, err
		}
		if !hasMore {
			return total, nil
		}
	}
}

// ReleaseStale возвращает в очередь события, которые слишком долго висят в processing.
func (w *OutboxWorker) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	released, err := w.repo.ReleaseStale(ctx, olderThan)
	if err != nil {
		return 0, e.Wrap("OutboxWorker.ReleaseStale", err)
	}

	if released > 0 {
		w.logger.Warnf("Released %d stale outbox event(s)", released)
	}

	return released, nil
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn
	defer func() {
		if conn != nil {
			conn.Close(context.Background())
		}
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if conn == nil {
			c, err := w.listen(ctx)
			if err != nil {
				w.logger.Warnf("LISTEN connect failed: %v", err)
				delay := jitter.ExponentialBackoff(reconnectBase, reconnectMax, attempt, jitter.DefaultJitter)
				attempt++
				if !jitter.Sleep(ctx.Done(), delay) {
					return
				}
				continue
			}
			conn, attempt = c, 0
		}

		waitCtx, cancel := context.WithTimeout(ctx, notificationTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}

			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			conn.Close(context.Background())
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == outboxChannel {
			w.logger.Debugf("Received outbox notification, draining outbox events")
			if _, err := w.Drain(ctx); err != nil {
				w.logger.Warnf("Batch processing failed: %v", err)
			}
		}
	}
}

// listen открывает отдельное соединение и подписывается на канал outbox_pending.
func (w *OutboxWorker) listen(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, w.dbConnStr)
	if err != nil {
		return nil, e.Wrap("failed to connect for LISTEN", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+outboxChannel); err != nil {
		conn.Close(ctx)
		return nil, e.Wrap("failed to LISTEN", err)
	}

	w.logger.Infof("Subscribed to '%s' channel", outboxChannel)
	return conn, nil
}

// processBatch возвращает число отправленных событий и признак, что очередь могла не опустеть.
// Если в пачке были временные неудачи, hasMore=false, чтобы не крутиться на недоступном брокере.
func (w *OutboxWorker) processBatch(ctx context.Context) (int, bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return 0, false, err
	}

	if len(events) == 0 {
		return 0, false, nil
	}

	sent, retry := 0, 0
	for _, event := range events {
		if err := w.SendBytes(ctx, event.ProductID, event.Payload); err != nil {
			if isPermanentError(err) {
				w.logger.Errorf(err, "outbox event %s rejected by broker, marking as failed", event.EventID)
				if err := w.repo.MarkAsFailed(ctx, event.ID); err != nil {
					w.logger.Warnf("mark failed failed: %v", err)
				}
				continue
			}

			retry++
			w.logger.Warnf("outbox event %s not sent, will retry: %v", event.EventID, err)
			if err := w.repo.MarkAsPending(ctx, event.ID); err != nil {
				w.logger.Warnf("mark pending failed: %v", err)
			}
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
			continue
		}
		sent++
	}

	return sent, retry == 0 && len(events) == w.batchSize, nil
}

func (w *OutboxWorker) SendBytes(ctx context.Context, productID int64, payload []byte) error {
	return w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(productID, payload))
}

// isPermanentError сообщает, что брокер отверг само сообщение. Сетевые ошибки и
// недоступность брокера сюда не относятся.
func isPermanentError(err error) bool {
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		if writeErrs.Count() == 0 {
			return false
		}
		for _, werr := range writeErrs {
			if werr != nil && !isPermanentError(werr) {
				return false
			}
		}
		return true
	}

	var tooLarge kafka.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		switch kerr {
		case kafka.InvalidMessage, kafka.InvalidMessageSize, kafka.MessageSizeTooLarge, kafka.InvalidRecord:
			return true
		}
	}

	return false
}
