package services

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// RoleService manages role grants scoped to a factory, collection or sale.
type RoleService struct {
	ledger *Ledger
	log    *zap.Logger
}

func NewRoleService(ledger *Ledger, log *zap.Logger) *RoleService {
	return &RoleService{ledger: ledger, log: log}
}

func (s *RoleService) HasRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address) (bool, error) {
	var ok bool
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		ok, err = tx.HasRole(ctx, scope, role, account)
		return err
	})
	return ok, err
}

// Grant is idempotent; only an effective change emits role_granted.
func (s *RoleService) Grant(ctx context.Context, scope, caller common.Address, role common.Hash, account common.Address) error {
	return s.ledger.exec(ctx, func(o *op) error {
		if err := o.requireRole(ctx, scope, rbac.AdminOf(role), caller); err != nil {
			return err
		}
		return o.setRole(ctx, caller, scope, role, account, true)
	})
}

// Revoke is idempotent; only an effective change emits role_revoked.
func (s *RoleService) Revoke(ctx context.Context, scope, caller common.Address, role common.Hash, account common.Address) error {
	return s.ledger.exec(ctx, func(o *op) error {
		if err := o.requireRole(ctx, scope, rbac.AdminOf(role), caller); err != nil {
			return err
		}
		return o.setRole(ctx, caller, scope, role, account, false)
	})
}
