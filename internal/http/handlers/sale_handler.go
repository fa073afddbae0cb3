package handlers

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type SaleHandler struct {
	saleService *services.SaleService
	log         *zap.Logger
}

func NewSaleHandler(saleService *services.SaleService, log *zap.Logger) *SaleHandler {
	return &SaleHandler{saleService: saleService, log: log}
}

// Buy погашает подписанный ваучер.
// POST /sales/:sale/buy
func (h *SaleHandler) Buy(c *fiber.Ctx) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}

	var req dto.BuyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	assetID, valid := new(big.Int).SetString(req.AssetID, 10)
	if !valid || assetID.Sign() < 0 {
		return badRequest(c, "invalid asset_id")
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return badRequest(c, "signature must be 0x-prefixed hex")
	}
	var agent common.Address
	if req.Agent != "" {
		if agent, valid = parseAddress(req.Agent); !valid {
			return badRequest(c, "invalid agent address")
		}
	}
	value, err := ether(req.ValueETH)
	if err != nil {
		return badRequest(c, "invalid value_eth")
	}

	purchase, err := h.saleService.Buy(c.Context(), services.BuyRequest{
		Sale:                 sale,
		Caller:               middleware.GetWallet(c),
		AssetID:              assetID,
		MetadataID:           req.MetadataID,
		SignedAt:             req.SignedAt,
		Agent:                agent,
		WantsInstallmentPlan: req.InstallmentPlan,
		Signature:            sig,
		Value:                value,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return created(c, purchase)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}
	s, err := h.saleService.GetSale(c.Context(), sale)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, s)
}

func (h *SaleHandler) ListListings(c *fiber.Ctx) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}
	listings, err := h.saleService.ListListings(c.Context(), sale)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, listings)
}

func (h *SaleHandler) GetListing(c *fiber.Ctx) error {
	sale, id, valid := listingRef(c)
	if !valid {
		return badRequest(c, "invalid sale address or listing id")
	}
	l, err := h.saleService.GetListing(c.Context(), sale, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, l)
}

// AddListing создаёт лот с ценой и лимитом.
// POST /sales/:sale/listings
func (h *SaleHandler) AddListing(c *fiber.Ctx) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}
	var req dto.AddListingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	price, err := ether(req.PriceETH)
	if err != nil {
		return badRequest(c, "invalid price_eth")
	}

	l, err := h.saleService.AddListing(c.Context(), sale, middleware.GetWallet(c), price, req.LandType, req.UnitLimit)
	if err != nil {
		return fail(c, h.log, err)
	}
	return created(c, l)
}

func (h *SaleHandler) UpdatePrice(c *fiber.Ctx) error {
	sale, id, valid := listingRef(c)
	if !valid {
		return badRequest(c, "invalid sale address or listing id")
	}
	var req dto.UpdatePriceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	price, err := ether(req.PriceETH)
	if err != nil {
		return badRequest(c, "invalid price_eth")
	}

	l, err := h.saleService.UpdatePrice(c.Context(), sale, middleware.GetWallet(c), id, price)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, l)
}

func (h *SaleHandler) UpdateUnitLimit(c *fiber.Ctx) error {
	sale, id, valid := listingRef(c)
	if !valid {
		return badRequest(c, "invalid sale address or listing id")
	}
	var req dto.UpdateUnitLimitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	l, err := h.saleService.UpdateUnitLimit(c.Context(), sale, middleware.GetWallet(c), id, req.UnitLimit)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, l)
}

func (h *SaleHandler) AddBlacklist(c *fiber.Ctx) error {
	return h.blacklist(c, true)
}

func (h *SaleHandler) RemoveBlacklist(c *fiber.Ctx) error {
	return h.blacklist(c, false)
}

func (h *SaleHandler) blacklist(c *fiber.Ctx, listed bool) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}
	var req dto.BlacklistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	account, valid := parseAddress(req.Account)
	if !valid {
		return badRequest(c, "invalid account address")
	}

	caller := middleware.GetWallet(c)
	var err error
	if listed {
		err = h.saleService.AddBlacklist(c.Context(), sale, caller, account)
	} else {
		err = h.saleService.RemoveBlacklist(c.Context(), sale, caller, account)
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *SaleHandler) UpdateExpiry(c *fiber.Ctx) error {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return badRequest(c, "invalid sale address")
	}
	var req dto.UpdateExpiryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.saleService.UpdateExpiry(c.Context(), sale, middleware.GetWallet(c), req.ExpirySeconds); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func listingRef(c *fiber.Ctx) (common.Address, uint64, bool) {
	sale, valid := addressParam(c, "sale")
	if !valid {
		return common.Address{}, 0, false
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return common.Address{}, 0, false
	}
	return sale, id, true
}
