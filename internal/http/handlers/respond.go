package handlers

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/units"
	"go.uber.org/zap"
)

// statusOf maps a ledger error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrNotOwner),
		errors.Is(err, models.ErrBlacklisted):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrAlreadyPaid),
		errors.Is(err, models.ErrTokenExists),
		errors.Is(err, models.ErrLimitReached),
		errors.Is(err, models.ErrOutOfOrder):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrSignatureExpired),
		errors.Is(err, models.ErrInvalidSignature),
		errors.Is(err, models.ErrInsufficientPayment),
		errors.Is(err, models.ErrInvalidAmount):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidArgument):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes a ledger error with its stable reason code.
func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := statusOf(err)
	reqID := middleware.GetRequestID(c)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.String("request_id", reqID), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal", RequestID: reqID})
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error:     models.ErrorCode(err),
		Detail:    err.Error(),
		RequestID: reqID,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: data})
}

// parseAddress accepts 20-byte hex with or without the 0x prefix.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func addressParam(c *fiber.Ctx, name string) (common.Address, bool) {
	return parseAddress(c.Params(name))
}

func bigParam(c *fiber.Ctx, name string) (*big.Int, bool) {
	n, valid := new(big.Int).SetString(c.Params(name), 10)
	if !valid || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

// ether parses an optional decimal ether amount; empty means zero.
func ether(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return units.ParseEther(s)
}
