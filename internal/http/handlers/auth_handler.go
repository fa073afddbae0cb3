package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Challenge выдаёт сообщение для подписи кошельком.
// POST /auth/challenge
func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	wallet, valid := parseAddress(req.Wallet)
	if !valid {
		return badRequest(c, "invalid wallet address")
	}

	msg, err := h.authService.Challenge(c.Context(), wallet)
	if err != nil {
		h.log.Error("failed to create login challenge", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.ChallengeResponse{Message: msg})
}

// Login обменивает подписанный challenge на JWT.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	wallet, valid := parseAddress(req.Wallet)
	if !valid {
		return badRequest(c, "invalid wallet address")
	}
	if req.Signature == "" {
		return badRequest(c, "signature is required")
	}

	token, err := h.authService.Login(c.Context(), wallet, req.Signature)
	if err != nil {
		if errors.Is(err, services.ErrChallengeNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.log.Debug("wallet login failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid signature"})
	}

	return c.JSON(dto.AuthResponse{Token: token, Wallet: wallet.Hex()})
}
