package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type FactoryHandler struct {
	factoryService *services.FactoryService
	cfg            *config.Config
	log            *zap.Logger
}

func NewFactoryHandler(factoryService *services.FactoryService, cfg *config.Config, log *zap.Logger) *FactoryHandler {
	return &FactoryHandler{factoryService: factoryService, cfg: cfg, log: log}
}

func (h *FactoryHandler) GetFactory(c *fiber.Ctx) error {
	f, err := h.factoryService.GetFactory(c.Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, f)
}

func (h *FactoryHandler) UpdateFee(c *fiber.Ctx) error {
	var req dto.UpdateFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	fee, err := ether(req.FeeETH)
	if err != nil {
		return badRequest(c, "invalid fee_eth")
	}
	if err := h.factoryService.UpdateFee(c.Context(), middleware.GetWallet(c), fee); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *FactoryHandler) CreateCollection(c *fiber.Ctx) error {
	var req dto.CreateCollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	value, err := ether(req.ValueETH)
	if err != nil {
		return badRequest(c, "invalid value_eth")
	}

	col, err := h.factoryService.CreateCollection(c.Context(), middleware.GetWallet(c), collectionParams(req.CollectionParams), value)
	if err != nil {
		return fail(c, h.log, err)
	}
	return created(c, col)
}

func (h *FactoryHandler) CreateSale(c *fiber.Ctx) error {
	var req dto.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	collection, valid := parseAddress(req.Collection)
	if !valid {
		return badRequest(c, "invalid collection address")
	}
	value, err := ether(req.ValueETH)
	if err != nil {
		return badRequest(c, "invalid value_eth")
	}

	sale, err := h.factoryService.CreateSale(c.Context(), middleware.GetWallet(c), collection, h.saleParams(req.SaleParams), value)
	if err != nil {
		return fail(c, h.log, err)
	}
	return created(c, sale)
}

// CreateInstance разворачивает коллекцию и продажу за одну комиссию.
// POST /factory/instances
func (h *FactoryHandler) CreateInstance(c *fiber.Ctx) error {
	var req dto.CreateInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	value, err := ether(req.ValueETH)
	if err != nil {
		return badRequest(c, "invalid value_eth")
	}

	inst, err := h.factoryService.CreateInstance(c.Context(), middleware.GetWallet(c), collectionParams(req.Collection), h.saleParams(req.Sale), value)
	if err != nil {
		return fail(c, h.log, err)
	}
	return created(c, inst)
}

func collectionParams(p dto.CollectionParams) services.CollectionParams {
	return services.CollectionParams{Name: p.Name, Symbol: p.Symbol, BaseURI: p.BaseURI}
}

// saleParams applies the configured agent commission when none is given.
func (h *FactoryHandler) saleParams(p dto.SaleParams) services.SaleParams {
	fee := h.cfg.AgentFeePercent
	if p.AgentFeePercent != nil {
		fee = *p.AgentFeePercent
	}
	return services.SaleParams{ExpirySeconds: p.ExpirySeconds, AgentFeePercent: fee}
}
