package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type RoleRepo struct {
	db DBTX
}

func NewRoleRepo(db DBTX) *RoleRepo {
	return &RoleRepo{db: db}
}

func (r *RoleRepo) HasRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM role_grants WHERE scope = $1 AND role = $2 AND account = $3)
	`, scope.Hex(), role.Hex(), account.Hex()).Scan(&exists)
	return exists, err
}

func (r *RoleRepo) SetRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address, granted bool) (bool, error) {
	if granted {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO role_grants (scope, role, account) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, scope.Hex(), role.Hex(), account.Hex())
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}

	tag, err := r.db.Exec(ctx, `
		DELETE FROM role_grants WHERE scope = $1 AND role = $2 AND account = $3
	`, scope.Hex(), role.Hex(), account.Hex())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
