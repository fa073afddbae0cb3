package handlers

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type CollectionHandler struct {
	collectionService  *services.CollectionService
	installmentService *services.InstallmentService
	log                *zap.Logger
}

func NewCollectionHandler(collectionService *services.CollectionService, installmentService *services.InstallmentService, log *zap.Logger) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService, installmentService: installmentService, log: log}
}

func (h *CollectionHandler) GetCollection(c *fiber.Ctx) error {
	collection, valid := addressParam(c, "c")
	if !valid {
		return badRequest(c, "invalid collection address")
	}
	col, err := h.collectionService.GetCollection(c.Context(), collection)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, col)
}

// GetToken возвращает владельца, тип участка и token URI.
func (h *CollectionHandler) GetToken(c *fiber.Ctx) error {
	collection, tokenID, valid := tokenParams(c)
	if !valid {
		return badRequest(c, "invalid collection address or token id")
	}
	tok, err := h.collectionService.GetToken(c.Context(), collection, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	uri, err := h.collectionService.TokenURI(c.Context(), collection, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"token": tok, "token_uri": uri})
}

func (h *CollectionHandler) BalanceOf(c *fiber.Ctx) error {
	collection, valid := addressParam(c, "c")
	if !valid {
		return badRequest(c, "invalid collection address")
	}
	owner, valid := addressParam(c, "owner")
	if !valid {
		return badRequest(c, "invalid owner address")
	}
	n, err := h.collectionService.BalanceOf(c.Context(), collection, owner)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"owner": owner.Hex(), "tokens": n})
}

// UpdateSchedule заменяет график рассрочки для типа участка.
// PUT /collections/:c/schedules/:type
func (h *CollectionHandler) UpdateSchedule(c *fiber.Ctx) error {
	collection, valid := addressParam(c, "c")
	if !valid {
		return badRequest(c, "invalid collection address")
	}
	landType, err := strconv.ParseUint(c.Params("type"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid land type")
	}
	var req dto.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	total, err := ether(req.TotalPriceETH)
	if err != nil {
		return badRequest(c, "invalid total_price_eth")
	}
	amounts := make([]*big.Int, len(req.AmountsETH))
	for i, s := range req.AmountsETH {
		if amounts[i], err = ether(s); err != nil {
			return badRequest(c, "invalid amounts_eth["+strconv.Itoa(i)+"]")
		}
	}

	schedule, err := h.installmentService.UpdateDefaultInstallmentsByType(c.Context(), collection, middleware.GetWallet(c), total, req.Offsets, amounts, landType)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, schedule)
}

func (h *CollectionHandler) GetSchedule(c *fiber.Ctx) error {
	collection, valid := addressParam(c, "c")
	if !valid {
		return badRequest(c, "invalid collection address")
	}
	landType, err := strconv.ParseUint(c.Params("type"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid land type")
	}
	schedule, err := h.installmentService.GetDefaultSchedule(c.Context(), collection, landType)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, schedule)
}

func (h *CollectionHandler) GetPlan(c *fiber.Ctx) error {
	collection, tokenID, valid := tokenParams(c)
	if !valid {
		return badRequest(c, "invalid collection address or token id")
	}
	plan, err := h.installmentService.GetPlan(c.Context(), collection, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, plan)
}

func (h *CollectionHandler) IsFullyPaid(c *fiber.Ctx) error {
	collection, tokenID, valid := tokenParams(c)
	if !valid {
		return badRequest(c, "invalid collection address or token id")
	}
	paid, err := h.installmentService.IsFullyPaid(c.Context(), collection, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, dto.PaidResponse{Fully: paid})
}

func (h *CollectionHandler) Quote(c *fiber.Ctx) error {
	collection, tokenID, valid := tokenParams(c)
	if !valid {
		return badRequest(c, "invalid collection address or token id")
	}
	index, err := strconv.ParseUint(c.Params("index"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid installment index")
	}
	q, err := h.installmentService.Quote(c.Context(), collection, tokenID, index)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, q)
}

// PayInstallment оплачивает один платёж; сумма должна совпасть с quote.
// POST /collections/:c/tokens/:id/installments/:index/pay
func (h *CollectionHandler) PayInstallment(c *fiber.Ctx) error {
	collection, tokenID, valid := tokenParams(c)
	if !valid {
		return badRequest(c, "invalid collection address or token id")
	}
	index, err := strconv.ParseUint(c.Params("index"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid installment index")
	}
	var req dto.PayInstallmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	value, err := ether(req.ValueETH)
	if err != nil {
		return badRequest(c, "invalid value_eth")
	}

	paid, err := h.installmentService.PayInstallment(c.Context(), collection, middleware.GetWallet(c), tokenID, index, value)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, paid)
}

func tokenParams(c *fiber.Ctx) (common.Address, *big.Int, bool) {
	collection, valid := addressParam(c, "c")
	if !valid {
		return common.Address{}, nil, false
	}
	tokenID, valid := bigParam(c, "id")
	if !valid {
		return common.Address{}, nil, false
	}
	return collection, tokenID, true
}
