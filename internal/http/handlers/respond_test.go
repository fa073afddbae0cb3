package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/models"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, fiber.StatusNotFound},
		{models.ErrUnauthorized, fiber.StatusForbidden},
		{models.ErrNotOwner, fiber.StatusForbidden},
		{models.ErrBlacklisted, fiber.StatusForbidden},
		{models.ErrAlreadyPaid, fiber.StatusConflict},
		{models.ErrLimitReached, fiber.StatusConflict},
		{models.ErrTokenExists, fiber.StatusConflict},
		{models.ErrOutOfOrder, fiber.StatusConflict},
		{models.ErrSignatureExpired, fiber.StatusUnprocessableEntity},
		{models.ErrInvalidSignature, fiber.StatusUnprocessableEntity},
		{models.ErrInsufficientPayment, fiber.StatusUnprocessableEntity},
		{models.ErrInvalidAmount, fiber.StatusUnprocessableEntity},
		{models.ErrInvalidArgument, fiber.StatusBadRequest},
		{fmt.Errorf("listing 3: %w", models.ErrNotFound), fiber.StatusNotFound},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusOf(tt.err); got != tt.want {
				t.Errorf("statusOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0x00000000000000000000000000000000000a11ce", true},
		{"00000000000000000000000000000000000a11ce", true},
		{"0x123", false},
		{"", false},
		{"0xzz000000000000000000000000000000000a11ce", false},
	}
	for _, tt := range tests {
		if _, got := parseAddress(tt.in); got != tt.want {
			t.Errorf("parseAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
