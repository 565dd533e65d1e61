package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/infrastructure/client"
	"github.com/St1cky1/entraide-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const reconnectDelay = 5 * time.Second

var errMalformedEvent = errors.New("malformed task event")

// HistoryWorker читает события задач из RabbitMQ и сохраняет историю
type HistoryWorker struct {
	dial        func() (*amqp.Connection, error)
	queueName   string
	historyRepo repository.ITaskHistoryRepository
}

func NewHistoryWorker(url, queueName string, historyRepo repository.ITaskHistoryRepository) *HistoryWorker {
	return &HistoryWorker{
		dial:        func() (*amqp.Connection, error) { return amqp.Dial(url) },
		queueName:   queueName,
		historyRepo: historyRepo,
	}
}

// Start работает до отмены ctx, переподключаясь при обрыве
func (w *HistoryWorker) Start(ctx context.Context) {
	for {
		err := w.run(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("history worker stopped")
			return
		}

		log.Error().Err(err).Dur("retry_in", reconnectDelay).Msg("history worker failed, reconnecting")
		select {
		case <-ctx.Done():
			log.Info().Msg("history worker stopped")
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *HistoryWorker) run(ctx context.Context) error {
	// Отдельное соединение и канал для consumer'а
	conn, err := w.dial()
	if err != nil {
		return fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	if _, err := client.DeclareTaskEventsQueue(channel, w.queueName); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		w.queueName,      // queue
		"history_worker", // consumer tag
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	log.Info().Str("queue", w.queueName).Msg("history worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *HistoryWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	err := w.Handle(ctx, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, errMalformedEvent):
		log.Error().Err(err).Bytes("body", msg.Body).Msg("dropping task event")
		msg.Nack(false, false) // Не возвращаем в очередь
	default:
		log.Error().Err(err).Msg("failed to save task history, requeue")
		msg.Nack(false, true) // Возвращаем в очередь для повторной обработки
	}
}

// Handle разбирает событие и сохраняет запись истории
func (w *HistoryWorker) Handle(ctx context.Context, body []byte) error {
	var event entity.TaskEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if !event.To.Valid() {
		return fmt.Errorf("%w: unknown status %q", errMalformedEvent, event.To)
	}

	return saveHistory(ctx, w.historyRepo, &event)
}

func saveHistory(ctx context.Context, repo repository.ITaskHistoryRepository, event *entity.TaskEvent) error {
	h := &entity.TaskHistory{
		TaskID:     event.TaskID,
		Kind:       event.Kind,
		FromStatus: event.From,
		ToStatus:   event.To,
		ActorID:    event.ActorID,
		HelperID:   event.HelperID,
		OccurredAt: event.Timestamp,
	}
	if h.OccurredAt.IsZero() {
		h.OccurredAt = time.Now().UTC()
	}

	if err := repo.Create(ctx, h); err != nil {
		return fmt.Errorf("failed to save task history: %w", err)
	}

	log.Debug().Str("task_id", h.TaskID.String()).Str("kind", string(h.Kind)).Msg("task history saved")
	return nil
}
