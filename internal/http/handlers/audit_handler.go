package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/models"
	"go.uber.org/zap"
)

// AuditReader is implemented by repositories.AuditRepo.
type AuditReader interface {
	GetByEntity(ctx context.Context, entityType, entityRef string, limit, offset int) ([]models.AuditLog, error)
}

type AuditHandler struct {
	audit AuditReader
	log   *zap.Logger
}

func NewAuditHandler(audit AuditReader, log *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// GetEntityLog returns the audit trail of one entity, newest first.
// GET /audit/:entity/* (token refs contain a slash)
func (h *AuditHandler) GetEntityLog(c *fiber.Ctx) error {
	entity := c.Params("entity")
	ref := c.Params("*")
	if entity == "" || ref == "" {
		return badRequest(c, "entity and ref are required")
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.audit.GetByEntity(c.Context(), entity, ref, limit, offset)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, entries)
}
