package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// OrderIngester recibe una orden de canal y la asigna si llegó pagada.
type OrderIngester interface {
	IngestAndAllocate(ctx context.Context, in order.IngestInput) (*entity.Order, bool, error)
}

// OrderEvent mensaje del tópico de órdenes.
type OrderEvent struct {
	ChannelID       string           `json:"channel_id"`
	ExternalOrderNo string           `json:"external_order_no"`
	Paid            bool             `json:"paid"`
	Receiver        entity.Address   `json:"receiver"`
	Items           []OrderEventItem `json:"items"`
}

// OrderEventItem línea de la orden.
type OrderEventItem struct {
	ChannelProductID string          `json:"channel_product_id"`
	SKU              string          `json:"sku"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// Input convierte el evento a la entrada del caso de uso.
func (e OrderEvent) Input() order.IngestInput {
	in := order.IngestInput{
		ChannelID:       e.ChannelID,
		ExternalOrderNo: e.ExternalOrderNo,
		Paid:            e.Paid,
		Receiver:        e.Receiver,
		Items:           make([]order.IngestItem, 0, len(e.Items)),
	}
	for _, it := range e.Items {
		in.Items = append(in.Items, order.IngestItem{
			ChannelProductID: it.ChannelProductID,
			SKU:              it.SKU,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
		})
	}
	return in
}

// OrderListener consume el tópico de órdenes. Cada mensaje se confirma después de procesarse,
// incluso si falla: la recepción es idempotente por (canal, número externo) y un mensaje
// inválido no debe bloquear la partición.
type OrderListener struct {
	consumer   MessageConsumer
	ingester   OrderIngester
	clock      clock.Clock
	log        *logger.Logger
	attempts   int
	retryDelay time.Duration
}

// NewOrderListener construye el listener. Reintenta errores transitorios attempts veces.
func NewOrderListener(consumer MessageConsumer, ingester OrderIngester, clk clock.Clock, log *logger.Logger, attempts int, retryDelay time.Duration) *OrderListener {
	if attempts < 1 {
		attempts = 1
	}
	if retryDelay <= 0 {
		retryDelay = time.Millisecond
	}
	return &OrderListener{
		consumer:   consumer,
		ingester:   ingester,
		clock:      clk,
		log:        log.Named("order_listener"),
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// Run lee hasta que ctx se cancele. Devuelve nil en cancelación.
func (l *OrderListener) Run(ctx context.Context) error {
	l.log.Info().Msg("escuchando órdenes de canal")
	for {
		msg, err := l.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("leer orden: %w", err)
		}
		_ = l.Handle(ctx, msg)
		if err := l.consumer.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit de offset fallido")
		}
	}
}

// Handle procesa un mensaje; el error ya quedó registrado.
func (l *OrderListener) Handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := telemetry.Tracer().Start(extractTrace(ctx, msg), "order.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		))
	defer span.End()

	var ev OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		l.log.Error().Err(err).Bytes("raw_value", msg.Value).Msg("orden con JSON inválido")
		span.SetStatus(codes.Error, "json")
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var (
		o       *entity.Order
		created bool
	)
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			o, created, err = l.ingester.IngestAndAllocate(ctx, ev.Input())
			return err
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound)
		},
		Attempts: l.attempts,
		Delay:    l.retryDelay,
		Clock:    l.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) {
			err = retry.LastError(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.log.Error().Err(err).
			Str("channel_id", ev.ChannelID).
			Str("external_order_no", ev.ExternalOrderNo).
			Msg("orden de canal rechazada")
		return err
	}
	l.log.Info().
		Str("order_id", o.ID).
		Str("status", string(o.Status)).
		Bool("created", created).
		Msg("orden de canal recibida")
	return nil
}

// Close cierra el consumer.
func (l *OrderListener) Close() error { return l.consumer.Close() }
