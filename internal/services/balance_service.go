package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// BalanceService exposes proceeds credited by sales, installments and
// factory fees. Balances are scoped to the instance that collected them.
type BalanceService struct {
	ledger *Ledger
	log    *zap.Logger
}

func NewBalanceService(ledger *Ledger, log *zap.Logger) *BalanceService {
	return &BalanceService{ledger: ledger, log: log}
}

func (s *BalanceService) Balance(ctx context.Context, scope, account common.Address) (*big.Int, error) {
	var b *big.Int
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBalance(ctx, scope, account)
		return err
	})
	return b, err
}

// Withdraw drains the caller's balance in scope. The payout itself is done by
// whoever consumes the withdrawn event.
func (s *BalanceService) Withdraw(ctx context.Context, scope, caller common.Address) (*big.Int, error) {
	var amount *big.Int
	err := s.ledger.exec(ctx, func(o *op) error {
		var err error
		amount, err = o.tx.GetBalance(ctx, scope, caller)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return fmt.Errorf("%w: nothing to withdraw", models.ErrInvalidAmount)
		}
		if err := o.tx.AddBalance(ctx, scope, caller, new(big.Int).Neg(amount)); err != nil {
			return err
		}
		if err := o.audit(ctx, caller, "withdrawn", "balance", scope.Hex(), map[string]any{
			"amount": amount.String(),
		}); err != nil {
			return err
		}
		o.emit(events.EventWithdrawn, map[string]any{
			"scope":   scope.Hex(),
			"account": caller.Hex(),
			"amount":  amount.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("balance withdrawn",
		zap.String("scope", scope.Hex()),
		zap.String("account", caller.Hex()),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}
