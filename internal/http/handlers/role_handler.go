package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/http/dto"
	"github.com/landsale/backend/internal/middleware"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type RoleHandler struct {
	roleService *services.RoleService
	log         *zap.Logger
}

func NewRoleHandler(roleService *services.RoleService, log *zap.Logger) *RoleHandler {
	return &RoleHandler{roleService: roleService, log: log}
}

func (h *RoleHandler) HasRole(c *fiber.Ctx) error {
	scope, valid := addressParam(c, "scope")
	if !valid {
		return badRequest(c, "invalid scope address")
	}
	role, valid := rbac.Parse(c.Params("role"))
	if !valid {
		return badRequest(c, "unknown role")
	}
	account, valid := addressParam(c, "account")
	if !valid {
		return badRequest(c, "invalid account address")
	}

	granted, err := h.roleService.HasRole(c.Context(), scope, role, account)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, dto.RoleResponse{Scope: scope.Hex(), Role: rbac.Name(role), Account: account.Hex(), Granted: granted})
}

func (h *RoleHandler) Grant(c *fiber.Ctx) error {
	return h.change(c, true)
}

func (h *RoleHandler) Revoke(c *fiber.Ctx) error {
	return h.change(c, false)
}

func (h *RoleHandler) change(c *fiber.Ctx, grant bool) error {
	scope, valid := addressParam(c, "scope")
	if !valid {
		return badRequest(c, "invalid scope address")
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	role, valid := rbac.Parse(req.Role)
	if !valid {
		return badRequest(c, "unknown role")
	}
	account, valid := parseAddress(req.Account)
	if !valid {
		return badRequest(c, "invalid account address")
	}

	caller := middleware.GetWallet(c)
	var err error
	if grant {
		err = h.roleService.Grant(c.Context(), scope, caller, role, account)
	} else {
		err = h.roleService.Revoke(c.Context(), scope, caller, role, account)
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, dto.RoleResponse{Scope: scope.Hex(), Role: rbac.Name(role), Account: account.Hex(), Granted: grant})
}
