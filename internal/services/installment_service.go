package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/installments"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// InstallmentService keeps default schedules per land type and settles
// installment payments against per-token plans.
type InstallmentService struct {
	ledger *Ledger
	cfg    *config.Config
	log    *zap.Logger
}

func NewInstallmentService(ledger *Ledger, cfg *config.Config, log *zap.Logger) *InstallmentService {
	return &InstallmentService{ledger: ledger, cfg: cfg, log: log}
}

// UpdateDefaultInstallmentsByType replaces the default schedule of a land
// type. Plans already issued keep their own copy.
func (s *InstallmentService) UpdateDefaultInstallmentsByType(ctx context.Context, collection, caller common.Address, totalPrice *big.Int, offsets []uint64, amounts []*big.Int, landType uint64) (*models.InstallmentSchedule, error) {
	var schedule *models.InstallmentSchedule
	err := s.ledger.exec(ctx, func(o *op) error {
		if _, err := o.tx.GetCollection(ctx, collection); err != nil {
			return err
		}
		if err := o.requireRole(ctx, collection, rbac.DeveloperRole, caller); err != nil {
			return err
		}

		var err error
		schedule, err = installments.BuildSchedule(s.cfg.Penalty, collection, landType, totalPrice, offsets, amounts, o.now)
		if err != nil {
			return err
		}
		if err := o.tx.PutDefaultSchedule(ctx, schedule); err != nil {
			return err
		}

		if err := o.audit(ctx, caller, "schedule_updated", "collection", collection.Hex(), map[string]any{
			"land_type":   landType,
			"total_price": totalPrice.String(),
			"entries":     len(offsets),
		}); err != nil {
			return err
		}
		o.emit(events.EventScheduleUpdated, map[string]any{
			"collection":  collection.Hex(),
			"land_type":   landType,
			"total_price": totalPrice.String(),
			"entries":     len(offsets),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *InstallmentService) GetDefaultSchedule(ctx context.Context, collection common.Address, landType uint64) (*models.InstallmentSchedule, error) {
	var schedule *models.InstallmentSchedule
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		schedule, err = tx.GetDefaultSchedule(ctx, collection, landType)
		return err
	})
	return schedule, err
}

// PayInstallment settles one installment. The payment must equal the amount
// required at the current time exactly.
func (s *InstallmentService) PayInstallment(ctx context.Context, collection, caller common.Address, tokenID *big.Int, index uint64, value *big.Int) (*models.Installment, error) {
	if value == nil {
		value = new(big.Int)
	}

	var paid models.Installment
	err := s.ledger.exec(ctx, func(o *op) error {
		// 1. Токен и владелец
		tok, err := o.tx.GetToken(ctx, collection, tokenID)
		if err != nil {
			return err
		}
		if tok.Owner != caller {
			return fmt.Errorf("%w: token %s belongs to %s", models.ErrNotOwner, tokenID, tok.Owner.Hex())
		}

		// 2. План и номер платежа
		plan, err := o.tx.GetPlan(ctx, collection, tokenID)
		if err != nil {
			return err
		}
		entry, ok := plan.Entry(index)
		if !ok {
			return fmt.Errorf("installment %d of token %s: %w", index, tokenID, models.ErrNotFound)
		}
		if entry.Paid {
			return fmt.Errorf("installment %d: %w", index, models.ErrAlreadyPaid)
		}
		if err := installments.CheckOrder(s.cfg.InstallmentOrder, plan, index); err != nil {
			return err
		}

		// 3. Точная сумма с учётом просрочки
		required := s.cfg.Penalty.Required(entry.ScheduledAmount, entry.DueOffset, o.now.Sub(plan.StartedAt))
		if value.Cmp(required) != 0 {
			return fmt.Errorf("%w: paid %s, required %s", models.ErrInvalidAmount, value, required)
		}

		paidAt := o.now
		entry.Paid = true
		entry.PaidAmount = new(big.Int).Set(value)
		entry.PaidAt = &paidAt
		if err := o.tx.PutPlan(ctx, plan); err != nil {
			return err
		}

		// 4. Зачисление владельцу коллекции
		c, err := o.tx.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		if err := o.tx.AddBalance(ctx, collection, c.Owner, value); err != nil {
			return err
		}

		late := required.Cmp(entry.ScheduledAmount) != 0
		if err := o.audit(ctx, caller, "installment_paid", "token", tokenRef(collection, tokenID), map[string]any{
			"index":  index,
			"amount": value.String(),
			"late":   late,
		}); err != nil {
			return err
		}
		o.emit(events.EventInstallmentPaid, map[string]any{
			"collection": collection.Hex(),
			"token_id":   tokenID.String(),
			"index":      index,
			"amount":     value.String(),
			"late":       late,
			"payer":      caller.Hex(),
		})
		if plan.IsFullyPaid() {
			o.emit(events.EventInstallmentPlanCompleted, map[string]any{
				"collection": collection.Hex(),
				"token_id":   tokenID.String(),
				"owner":      caller.Hex(),
			})
		}

		paid = *entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("installment paid",
		zap.String("collection", collection.Hex()),
		zap.String("token_id", tokenID.String()),
		zap.Uint64("index", index),
	)
	return &paid, nil
}

// Quote is the amount owed for an installment at a point in time.
type Quote struct {
	Index     uint64    `json:"index"`
	Scheduled string    `json:"scheduled"`
	Required  string    `json:"required"`
	DueAt     time.Time `json:"due_at"`
	Late      bool      `json:"late"`
	Paid      bool      `json:"paid"`
}

func (s *InstallmentService) Quote(ctx context.Context, collection common.Address, tokenID *big.Int, index uint64) (*Quote, error) {
	now := s.ledger.now()
	var q *Quote
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		plan, err := tx.GetPlan(ctx, collection, tokenID)
		if err != nil {
			return err
		}
		entry, ok := plan.Entry(index)
		if !ok {
			return fmt.Errorf("installment %d of token %s: %w", index, tokenID, models.ErrNotFound)
		}
		q = s.quote(plan, entry, now)
		return nil
	})
	return q, err
}

func (s *InstallmentService) quote(plan *models.InstallmentPlan, entry *models.Installment, now time.Time) *Quote {
	required := s.cfg.Penalty.Required(entry.ScheduledAmount, entry.DueOffset, now.Sub(plan.StartedAt))
	return &Quote{
		Index:     entry.Index,
		Scheduled: entry.ScheduledAmount.String(),
		Required:  required.String(),
		DueAt:     plan.StartedAt.Add(s.cfg.Penalty.DueAfter(entry.DueOffset)),
		Late:      required.Cmp(entry.ScheduledAmount) != 0,
		Paid:      entry.Paid,
	}
}

func (s *InstallmentService) GetPlan(ctx context.Context, collection common.Address, tokenID *big.Int) (*models.InstallmentPlan, error) {
	var plan *models.InstallmentPlan
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		plan, err = tx.GetPlan(ctx, collection, tokenID)
		return err
	})
	return plan, err
}

// IsFullyPaid reports whether every installment of a token is paid. A token
// bought without a plan is fully paid.
func (s *InstallmentService) IsFullyPaid(ctx context.Context, collection common.Address, tokenID *big.Int) (bool, error) {
	var paid bool
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetToken(ctx, collection, tokenID); err != nil {
			return err
		}
		plan, err := tx.GetPlan(ctx, collection, tokenID)
		if errors.Is(err, models.ErrNotFound) {
			paid = true
			return nil
		}
		if err != nil {
			return err
		}
		paid = plan.IsFullyPaid()
		return nil
	})
	return paid, err
}

// OverdueInstallment is an unpaid installment past its due time.
type OverdueInstallment struct {
	Collection common.Address
	TokenID    *big.Int
	Quote      *Quote
}

// Overdue lists every unpaid installment that is late at the current time.
func (s *InstallmentService) Overdue(ctx context.Context) ([]OverdueInstallment, error) {
	now := s.ledger.now()
	var out []OverdueInstallment
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		plans, err := tx.ListOpenPlans(ctx)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			for _, in := range installments.Overdue(s.cfg.Penalty, plan, now) {
				entry, _ := plan.Entry(in.Index)
				out = append(out, OverdueInstallment{
					Collection: plan.Collection,
					TokenID:    plan.TokenID,
					Quote:      s.quote(plan, entry, now),
				})
			}
		}
		return nil
	})
	return out, err
}
