package messaging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

type fakeProducer struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

// fakeConsumer entrega los mensajes en orden y luego bloquea hasta que ctx se cancele.
type fakeConsumer struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newFakeConsumer(msgs ...kafka.Message) *fakeConsumer {
	return &fakeConsumer{queue: msgs, drained: make(chan struct{})}
}

func (c *fakeConsumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	c.mu.Lock()
	if len(c.queue) > 0 {
		m := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (c *fakeConsumer) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.committed = append(c.committed, m.Offset)
	}
	if len(c.queue) == 0 {
		select {
		case <-c.drained:
		default:
			close(c.drained)
		}
	}
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

func (c *fakeConsumer) Committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.committed...)
}

func TestKafkaStockPublisher_WritesKeyedJSON(t *testing.T) {
	prod := &fakeProducer{}
	pub := messaging.NewKafkaStockPublisher(prod, logger.Nop())

	err := pub.PublishStock(context.Background(), []ports.ChannelStockUpdate{
		{ChannelProductID: "cp-1", ChannelID: "shop", SKU: "SKU-A", StockQuantity: 7, Price: decimal.RequireFromString("12.50")},
		{ChannelProductID: "cp-2", ChannelID: "shop", SKU: "SKU-B", StockQuantity: 0, Price: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	require.Len(t, prod.msgs, 2)
	assert.Equal(t, "cp-1", string(prod.msgs[0].Key))

	var got ports.ChannelStockUpdate
	require.NoError(t, json.Unmarshal(prod.msgs[0].Value, &got))
	assert.Equal(t, int64(7), got.StockQuantity)
	assert.Equal(t, "SKU-A", got.SKU)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, pub.PublishStock(context.Background(), nil))
	assert.Len(t, prod.msgs, 2)
}

func TestKafkaStockPublisher_WrapsWriteError(t *testing.T) {
	prod := &fakeProducer{err: errors.New("broker caído")}
	pub := messaging.NewKafkaStockPublisher(prod, logger.Nop())
	err := pub.PublishStock(context.Background(), []ports.ChannelStockUpdate{{ChannelProductID: "cp-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker caído")
}

func TestLogStockPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := messaging.NewLogStockPublisher(logger.New(logger.Config{Level: "info", Out: &buf}))
	require.NoError(t, pub.PublishStock(context.Background(), []ports.ChannelStockUpdate{
		{ChannelProductID: "cp-1", SKU: "SKU-A", StockQuantity: 4, Price: decimal.NewFromInt(9)},
	}))
	assert.Contains(t, buf.String(), `"channel_product_id":"cp-1"`)
	assert.Contains(t, buf.String(), `"stock":4`)
}

func orderMessage(t *testing.T, offset int64, ev messaging.OrderEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Topic: "orders", Offset: offset, Value: b}
}

func TestOrderListener_IngestsAndAllocates(t *testing.T) {
	env := apptest.New(t)
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-A", 5)
	cp := env.ChannelProduct(t, "shop", "SKU-A", env.ActiveListing(t, rec))

	ev := messaging.OrderEvent{
		ChannelID:       "shop",
		ExternalOrderNo: "EXT-9",
		Paid:            true,
		Receiver:        entity.Address{Name: "Ana", City: "Cali"},
		Items:           []messaging.OrderEventItem{{ChannelProductID: cp.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(12)}},
	}
	cons := newFakeConsumer(
		orderMessage(t, 1, ev),
		kafka.Message{Topic: "orders", Offset: 2, Value: []byte("{no es json")},
		orderMessage(t, 3, ev), // duplicado: idempotente
	)
	l := messaging.NewOrderListener(cons, env.Services, clock.WallClock, logger.Nop(), 2, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-cons.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("el listener no consumió los mensajes")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, cons.Committed())

	orders, err := env.Orders.List(context.Background(), repository.OrderFilter{ChannelID: "shop"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, entity.OrderAllocated, orders[0].Status)
	assert.Equal(t, int64(3), env.Record(t, rec.ID).QuantityAvailable)
}

type stubIngester struct {
	calls int
	errs  []error
}

func (s *stubIngester) IngestAndAllocate(_ context.Context, in order.IngestInput) (*entity.Order, bool, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, false, s.errs[s.calls-1]
	}
	return &entity.Order{ID: "o-1", ExternalOrderNo: in.ExternalOrderNo, Status: entity.OrderPending}, true, nil
}

func TestOrderListener_Handle_RetriesTransientErrors(t *testing.T) {
	ing := &stubIngester{errs: []error{errors.New("conexión reiniciada")}}
	l := messaging.NewOrderListener(newFakeConsumer(), ing, clock.WallClock, logger.Nop(), 3, time.Millisecond)

	msg := orderMessage(t, 1, messaging.OrderEvent{ChannelID: "shop", ExternalOrderNo: "E1"})
	require.NoError(t, l.Handle(context.Background(), msg))
	assert.Equal(t, 2, ing.calls)
}

func TestOrderListener_Handle_FatalErrorsAreNotRetried(t *testing.T) {
	ing := &stubIngester{errs: []error{fmt.Errorf("producto: %w", domain.ErrNotFound)}}
	l := messaging.NewOrderListener(newFakeConsumer(), ing, clock.WallClock, logger.Nop(), 3, time.Millisecond)

	err := l.Handle(context.Background(), orderMessage(t, 1, messaging.OrderEvent{ChannelID: "shop", ExternalOrderNo: "E1"}))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, ing.calls)

	err = l.Handle(context.Background(), kafka.Message{Value: []byte("[")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, ing.calls)
}
