// Package application arma los casos de uso sobre una persistencia y adaptadores dados.
package application

import (
	"context"

	"github.com/juju/clock"

	"github.com/jhoicas/marketplace-ledger/internal/application/allocation"
	"github.com/jhoicas/marketplace-ledger/internal/application/fulfillment"
	"github.com/jhoicas/marketplace-ledger/internal/application/inbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/application/listing"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// Deps adaptadores que consumen los casos de uso.
type Deps struct {
	Store     ports.Store
	Clock     clock.Clock
	Log       *logger.Logger
	Metrics   *telemetry.Metrics
	Publisher ports.ChannelStockPublisher
	WMS       ports.WMSClient
	Slips     ports.PackingSlipGenerator
	Pricing   ports.PricingEvaluator
	Outbound  outbound.Options
}

// Services todos los casos de uso conectados entre sí.
type Services struct {
	Ledger       *inventory.LedgerUseCase
	Listings     *listing.UseCase
	Fulfillments *fulfillment.UseCase
	Outbound     *outbound.UseCase
	Orders       *order.UseCase
	Router       *allocation.Router
	Inbound      *inbound.UseCase

	log *logger.Logger
}

// NewServices construye los casos de uso.
func NewServices(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}
	ledger := inventory.NewLedgerUseCase(d.Store, d.Clock, d.Log, d.Metrics)
	listings := listing.NewUseCase(d.Store, ledger, d.Publisher, d.Clock, d.Log, d.Metrics)
	fulfillments := fulfillment.NewUseCase(d.Store, ledger, listings, d.Clock, d.Log)
	out := outbound.NewUseCase(d.Store, fulfillments, d.WMS, d.Slips, listings, d.Clock, d.Log, d.Metrics, d.Outbound)
	return &Services{
		Ledger:       ledger,
		Listings:     listings,
		Fulfillments: fulfillments,
		Outbound:     out,
		Orders:       order.NewUseCase(d.Store, fulfillments, listings, d.Clock, d.Log),
		Router:       allocation.NewRouter(d.Store, ledger, out, d.Pricing, listings, d.Clock, d.Log, d.Metrics),
		Inbound:      inbound.NewUseCase(d.Store, ledger, listings, d.Clock, d.Log),
		log:          d.Log.Named("app"),
	}
}

// IngestAndAllocate registra la orden y, si llegó pagada y es nueva, la asigna de inmediato.
// Un fallo de asignación no invalida la recepción: la orden queda en allocation_failed.
func (s *Services) IngestAndAllocate(ctx context.Context, in order.IngestInput) (*entity.Order, bool, error) {
	o, created, err := s.Orders.Ingest(ctx, in)
	if err != nil || !created || o.PaymentStatus != entity.PaymentPaid {
		return o, created, err
	}
	allocated, err := s.Router.Allocate(ctx, o.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", o.ID).Msg("asignación automática fallida")
		if allocated != nil {
			return allocated, true, nil
		}
		return o, true, nil
	}
	return allocated, true, nil
}
