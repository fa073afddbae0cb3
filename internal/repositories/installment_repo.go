package repositories

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

type InstallmentRepo struct {
	db DBTX
}

func NewInstallmentRepo(db DBTX) *InstallmentRepo {
	return &InstallmentRepo{db: db}
}

// --- Default schedules ---

func (r *InstallmentRepo) GetDefaultSchedule(ctx context.Context, collection common.Address, landType uint64) (*models.InstallmentSchedule, error) {
	var total string
	s := models.InstallmentSchedule{Collection: collection, LandType: landType}
	err := r.db.QueryRow(ctx, `
		SELECT total_price::text, updated_at FROM installment_schedules
		WHERE collection = $1 AND land_type = $2
	`, collection.Hex(), landType).Scan(&total, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("schedule for land type %d", landType))
	}
	if s.TotalPrice, err = parseNumeric(total); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT offset_units, amount::text FROM installment_schedule_entries
		WHERE collection = $1 AND land_type = $2 ORDER BY idx
	`, collection.Hex(), landType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.ScheduleEntry
		var amount string
		if err := rows.Scan(&e.Offset, &amount); err != nil {
			return nil, err
		}
		if e.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		s.Entries = append(s.Entries, e)
	}
	return &s, rows.Err()
}

func (r *InstallmentRepo) PutDefaultSchedule(ctx context.Context, s *models.InstallmentSchedule) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO installment_schedules (collection, land_type, total_price, updated_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (collection, land_type) DO UPDATE SET
			total_price = EXCLUDED.total_price,
			updated_at = EXCLUDED.updated_at
	`, s.Collection.Hex(), s.LandType, numeric(s.TotalPrice), s.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `
		DELETE FROM installment_schedule_entries WHERE collection = $1 AND land_type = $2
	`, s.Collection.Hex(), s.LandType); err != nil {
		return err
	}

	for i, e := range s.Entries {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO installment_schedule_entries (collection, land_type, idx, offset_units, amount)
			VALUES ($1, $2, $3, $4, $5::numeric)
		`, s.Collection.Hex(), s.LandType, i+1, e.Offset, numeric(e.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// --- Token plans ---

func (r *InstallmentRepo) GetPlan(ctx context.Context, collection common.Address, tokenID *big.Int) (*models.InstallmentPlan, error) {
	p := models.InstallmentPlan{Collection: collection, TokenID: new(big.Int).Set(tokenID)}
	err := r.db.QueryRow(ctx, `
		SELECT land_type, started_at FROM installment_plans
		WHERE collection = $1 AND token_id = $2::numeric
	`, collection.Hex(), numeric(tokenID)).Scan(&p.LandType, &p.StartedAt)
	if err != nil {
		return nil, notFound(err, "installment plan for token "+tokenID.String())
	}

	if p.Installments, err = r.planInstallments(ctx, collection, tokenID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *InstallmentRepo) planInstallments(ctx context.Context, collection common.Address, tokenID *big.Int) ([]models.Installment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT idx, due_offset, scheduled_amount::text, paid, paid_amount::text, paid_at
		FROM plan_installments
		WHERE collection = $1 AND token_id = $2::numeric ORDER BY idx
	`, collection.Hex(), numeric(tokenID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		var in models.Installment
		var scheduled string
		var paidAmount *string
		var paidAt *time.Time
		if err := rows.Scan(&in.Index, &in.DueOffset, &scheduled, &in.Paid, &paidAmount, &paidAt); err != nil {
			return nil, err
		}
		if in.ScheduledAmount, err = parseNumeric(scheduled); err != nil {
			return nil, err
		}
		if paidAmount != nil {
			if in.PaidAmount, err = parseNumeric(*paidAmount); err != nil {
				return nil, err
			}
		}
		in.PaidAt = paidAt
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *InstallmentRepo) PutPlan(ctx context.Context, p *models.InstallmentPlan) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO installment_plans (collection, token_id, land_type, started_at)
		VALUES ($1, $2::numeric, $3, $4)
		ON CONFLICT (collection, token_id) DO NOTHING
	`, p.Collection.Hex(), numeric(p.TokenID), p.LandType, p.StartedAt)
	if err != nil {
		return err
	}

	for _, in := range p.Installments {
		var paidAmount *string
		if in.PaidAmount != nil {
			s := in.PaidAmount.String()
			paidAmount = &s
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO plan_installments (collection, token_id, idx, due_offset, scheduled_amount, paid, paid_amount, paid_at)
			VALUES ($1, $2::numeric, $3, $4, $5::numeric, $6, $7::numeric, $8)
			ON CONFLICT (collection, token_id, idx) DO UPDATE SET
				paid = EXCLUDED.paid,
				paid_amount = EXCLUDED.paid_amount,
				paid_at = EXCLUDED.paid_at
		`, p.Collection.Hex(), numeric(p.TokenID), in.Index, in.DueOffset, numeric(in.ScheduledAmount),
			in.Paid, paidAmount, in.PaidAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *InstallmentRepo) ListOpenPlans(ctx context.Context) ([]*models.InstallmentPlan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.collection, p.token_id::text, p.land_type, p.started_at
		FROM installment_plans p
		WHERE EXISTS (
			SELECT 1 FROM plan_installments i
			WHERE i.collection = p.collection AND i.token_id = p.token_id AND NOT i.paid
		)
		ORDER BY p.collection, p.token_id
	`)
	if err != nil {
		return nil, err
	}

	var plans []*models.InstallmentPlan
	for rows.Next() {
		var collection, tokenID string
		p := &models.InstallmentPlan{}
		if err := rows.Scan(&collection, &tokenID, &p.LandType, &p.StartedAt); err != nil {
			rows.Close()
			return nil, err
		}
		p.Collection = common.HexToAddress(collection)
		if p.TokenID, err = parseNumeric(tokenID); err != nil {
			rows.Close()
			return nil, err
		}
		plans = append(plans, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range plans {
		if p.Installments, err = r.planInstallments(ctx, p.Collection, p.TokenID); err != nil {
			return nil, err
		}
	}
	return plans, nil
}
