// Package messaging conecta el libro con Kafka: publica el stock de canal y consume órdenes de los canales.
package messaging

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageProducer escribe mensajes en un tópico. *kafka.Writer lo implementa.
type MessageProducer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageConsumer lee mensajes de un grupo de consumo con commit explícito. *kafka.Reader lo implementa.
type MessageConsumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter construye el writer del tópico de stock.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // misma llave, misma partición: orden por producto de canal
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewReader construye el reader del tópico de órdenes.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
