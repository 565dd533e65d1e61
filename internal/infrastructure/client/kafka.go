package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/segmentio/kafka-go"
)

// KafkaProducer пишет события задач в топик, ключ - id задачи
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaProducer{
		writer: writer,
	}
}

func (p *KafkaProducer) PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.TaskID.String()),
		Value: eventJSON,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
