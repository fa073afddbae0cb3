package handlers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/services"
	"github.com/landsale/backend/internal/units"
	"go.uber.org/zap"
)

type BalanceHandler struct {
	balanceService *services.BalanceService
	log            *zap.Logger
}

func NewBalanceHandler(balanceService *services.BalanceService, log *zap.Logger) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService, log: log}
}

func (h *BalanceHandler) GetBalance(c *fiber.Ctx) error {
	scope, valid := addressParam(c, "scope")
	if !valid {
		return badRequest(c, "invalid scope address")
	}
	account, valid := addressParam(c, "account")
	if !valid {
		return badRequest(c, "invalid account address")
	}
	b, err := h.balanceService.Balance(c.Context(), scope, account)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, balanceResponse(scope, account, b))
}

// Withdraw списывает весь баланс вызывающего в данном scope.
// POST /balances/:scope/withdraw
func (h *BalanceHandler) Withdraw(c *fiber.Ctx) error {
	scope, valid := addressParam(c, "scope")
	if !valid {
		return badRequest(c, "invalid scope address")
	}
	caller := middleware.GetWallet(c)
	amount, err := h.balanceService.Withdraw(c.Context(), scope, caller)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, balanceResponse(scope, caller, amount))
}

func balanceResponse(scope, account common.Address, wei *big.Int) dto.BalanceResponse {
	return dto.BalanceResponse{
		Scope:   scope.Hex(),
		Account: account.Hex(),
		Wei:     wei.String(),
		ETH:     units.FormatEther(wei),
	}
}
