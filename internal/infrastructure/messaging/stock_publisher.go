package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

var (
	_ ports.ChannelStockPublisher = (*KafkaStockPublisher)(nil)
	_ ports.ChannelStockPublisher = (*LogStockPublisher)(nil)
)

// KafkaStockPublisher publica cada ChannelStockUpdate como JSON con llave = ID del producto de canal.
type KafkaStockPublisher struct {
	producer MessageProducer
	log      *logger.Logger
}

// NewKafkaStockPublisher construye el publicador.
func NewKafkaStockPublisher(producer MessageProducer, log *logger.Logger) *KafkaStockPublisher {
	return &KafkaStockPublisher{producer: producer, log: log.Named("stock_publisher")}
}

// PublishStock escribe un mensaje por actualización, con el contexto de traza en los headers.
func (p *KafkaStockPublisher) PublishStock(ctx context.Context, updates []ports.ChannelStockUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	headers := traceHeaders(ctx)
	msgs := make([]kafka.Message, 0, len(updates))
	for _, u := range updates {
		payload, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("serializar stock %s: %w", u.ChannelProductID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(u.ChannelProductID),
			Value:   payload,
			Headers: headers,
		})
	}
	if err := p.producer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar stock de canal: %w", err)
	}
	p.log.Debug().Int("count", len(msgs)).Msg("stock de canal publicado")
	return nil
}

// Close cierra el producer.
func (p *KafkaStockPublisher) Close() error { return p.producer.Close() }

// LogStockPublisher solo registra las actualizaciones (desarrollo sin Kafka).
type LogStockPublisher struct {
	log *logger.Logger
}

// NewLogStockPublisher construye el publicador de log.
func NewLogStockPublisher(log *logger.Logger) *LogStockPublisher {
	return &LogStockPublisher{log: log.Named("stock_publisher")}
}

func (p *LogStockPublisher) PublishStock(_ context.Context, updates []ports.ChannelStockUpdate) error {
	for _, u := range updates {
		p.log.Info().
			Str("channel_product_id", u.ChannelProductID).
			Str("channel_id", u.ChannelID).
			Str("sku", u.SKU).
			Int64("stock", u.StockQuantity).
			Str("price", u.Price.StringFixed(2)).
			Msg("stock de canal")
	}
	return nil
}

// traceHeaders inyecta el contexto de traza actual como headers de Kafka.
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// extractTrace recupera el contexto de traza del productor desde los headers.
func extractTrace(ctx context.Context, msg kafka.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
