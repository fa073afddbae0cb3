package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/landsale/backend/internal/models"
)

type BalanceRepo struct {
	db DBTX
}

func NewBalanceRepo(db DBTX) *BalanceRepo {
	return &BalanceRepo{db: db}
}

func (r *BalanceRepo) GetBalance(ctx context.Context, scope, account common.Address) (*big.Int, error) {
	var amount string
	err := r.db.QueryRow(ctx, `
		SELECT amount::text FROM balances WHERE scope = $1 AND account = $2
	`, scope.Hex(), account.Hex()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseNumeric(amount)
}

func (r *BalanceRepo) AddBalance(ctx context.Context, scope, account common.Address, delta *big.Int) error {
	cur, err := r.GetBalance(ctx, scope, account)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(cur, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("balance of %s: %w", account.Hex(), models.ErrInvalidAmount)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO balances (scope, account, amount) VALUES ($1, $2, $3::numeric)
		ON CONFLICT (scope, account) DO UPDATE SET amount = EXCLUDED.amount
	`, scope.Hex(), account.Hex(), next.String())
	return err
}
