package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/marketplace-ledger/internal/application"
	"github.com/jhoicas/marketplace-ledger/internal/application/usecase"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/wms"
	"github.com/jhoicas/marketplace-ledger/pkg/jwt"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Services    *application.Services
	WarehouseUC *usecase.WarehouseUseCase
	ProductUC   *usecase.ProductUseCase
	Metrics     *telemetry.Metrics
	Signer      *wms.Signer // nil = callbacks del WMS deshabilitados
	Log         *logger.Logger
	JWTSecret   string
	ServiceName string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	svc := deps.Services

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Callbacks del WMS (firma del cuerpo, sin JWT)
	if deps.Signer != nil {
		cb := NewWMSCallbackHandler(deps.Signer, svc.Outbound, svc.Inbound, deps.Log)
		api.Post("/wms/callbacks", cb.Handle)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	admin := RequireRole(jwt.RoleAdmin)
	adminOrMerchant := RequireRole(jwt.RoleAdmin, jwt.RoleMerchant)
	adminOrWMS := RequireRole(jwt.RoleAdmin, jwt.RoleWMS)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleMerchant, jwt.RoleWMS)

	// Warehouses
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", admin, warehouseHandler.Create)
	warehouses.Get("/", anyRole, warehouseHandler.List)
	warehouses.Get("/:id", anyRole, warehouseHandler.GetByID)

	// Products (catálogo por comerciante)
	products := protected.Group("/products", adminOrMerchant)
	productHandler := NewProductHandler(deps.ProductUC)
	products.Put("/", productHandler.Upsert)
	products.Get("/:sku", productHandler.GetBySKU)

	// Libro de inventario (solo lectura + stock de seguridad)
	inv := protected.Group("/inventory", adminOrMerchant)
	inventoryHandler := NewInventoryHandler(svc.Ledger)
	inv.Get("/records", inventoryHandler.ListRecords)
	inv.Get("/records/:id", inventoryHandler.GetRecord)
	inv.Get("/records/:id/transactions", inventoryHandler.ListTransactions)
	inv.Put("/records/:id/safety-stock", inventoryHandler.SetSafetyStock)
	inv.Get("/low-stock", inventoryHandler.GetReplenishmentList)

	// Listings
	listingHandler := NewListingHandler(svc.Listings)
	listings := protected.Group("/listings", adminOrMerchant)
	listings.Post("/", listingHandler.Create)
	listings.Get("/", listingHandler.List)
	listings.Get("/:id", listingHandler.Get)
	listings.Post("/:id/activate", listingHandler.Activate)
	listings.Post("/:id/pause", listingHandler.Pause)
	listings.Put("/:id/price", listingHandler.UpdatePrice)
	listings.Put("/:id/allocation", listingHandler.UpdateAllocation)

	// Productos de canal (operación de plataforma)
	cps := protected.Group("/channel-products", admin)
	cps.Post("/", listingHandler.CreateChannelProduct)
	cps.Get("/", listingHandler.ListChannelProducts)
	cps.Get("/:id", listingHandler.GetChannelProduct)
	cps.Put("/:id/stock-settings", listingHandler.UpdateStockSettings)
	cps.Post("/:id/sources", listingHandler.AddSource)
	cps.Put("/:id/sources/:sourceId", listingHandler.UpdateSource)
	cps.Post("/:id/recalculate", listingHandler.Recalculate)

	// Órdenes y fulfillments
	orderHandler := NewOrderHandler(svc, svc.Orders, svc.Router, svc.Fulfillments)
	orders := protected.Group("/orders")
	orders.Post("/", admin, orderHandler.Ingest)
	orders.Get("/", admin, orderHandler.List)
	orders.Get("/:id", admin, orderHandler.Get)
	orders.Post("/:id/pay", admin, orderHandler.MarkPaid)
	orders.Post("/:id/allocate", admin, orderHandler.Allocate)
	orders.Post("/:id/cancel", admin, orderHandler.Cancel)
	orders.Get("/:id/fulfillments", adminOrMerchant, orderHandler.ListFulfillments)

	fulfillments := protected.Group("/fulfillments", adminOrMerchant)
	fulfillments.Get("/:id", orderHandler.GetFulfillment)
	fulfillments.Post("/:id/process", orderHandler.StartFulfillment)
	fulfillments.Post("/:id/ship", orderHandler.ShipFulfillment)
	fulfillments.Post("/:id/deliver", orderHandler.DeliverFulfillment)
	fulfillments.Post("/:id/cancel", orderHandler.CancelFulfillment)

	// Documentos de salida (bodegas de plataforma)
	docHandler := NewDocumentHandler(svc.Outbound, svc.Inbound)
	out := protected.Group("/outbound", adminOrWMS)
	out.Get("/", docHandler.ListOutbound)
	out.Post("/sync", docHandler.SyncPending)
	out.Get("/:id", docHandler.GetOutbound)
	out.Post("/:id/sync", docHandler.SyncOutbound)
	out.Post("/:id/cancel", admin, docHandler.CancelOutbound)
	out.Get("/:id/packing-slip", docHandler.PackingSlip)

	// Documentos de entrada: el comerciante arma y despacha; la bodega recibe
	in := protected.Group("/inbound")
	in.Post("/", adminOrMerchant, docHandler.CreateInbound)
	in.Get("/", anyRole, docHandler.ListInbound)
	in.Get("/:id", anyRole, docHandler.GetInbound)
	in.Post("/:id/submit", adminOrMerchant, docHandler.SubmitInbound)
	in.Post("/:id/ship", adminOrMerchant, docHandler.ShipInbound)
	in.Post("/:id/cancel", adminOrMerchant, docHandler.CancelInbound)
	in.Post("/:id/arrive", adminOrWMS, docHandler.ArriveInbound)
	in.Post("/:id/receive", adminOrWMS, docHandler.StartReceiving)
	in.Post("/:id/items/:itemId/confirm", adminOrWMS, docHandler.ConfirmItem)
	in.Post("/:id/complete", adminOrWMS, docHandler.CompleteInbound)

	// Novedades de recepción
	exs := protected.Group("/exceptions", adminOrWMS)
	exs.Post("/", docHandler.CreateException)
	exs.Get("/", docHandler.ListExceptions)
	exs.Get("/:id", docHandler.GetException)
	exs.Post("/:id/start", docHandler.StartException)
	exs.Post("/:id/resolve", docHandler.ResolveException)
	exs.Post("/:id/close", docHandler.CloseException)
}
