package installments

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

// Payment order policies
const (
	OrderAny        = "any"
	OrderSequential = "sequential"
)

// BuildSchedule validates the admin input and returns a default schedule.
// Every offset must have a due time representable under policy.
func BuildSchedule(policy PenaltyPolicy, collection common.Address, landType uint64, total *big.Int, offsets []uint64, amounts []*big.Int, now time.Time) (*models.InstallmentSchedule, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: schedule is empty", models.ErrInvalidArgument)
	}
	if len(offsets) != len(amounts) {
		return nil, fmt.Errorf("%w: %d offsets for %d amounts", models.ErrInvalidArgument, len(offsets), len(amounts))
	}
	if total == nil || total.Sign() <= 0 {
		return nil, fmt.Errorf("%w: total price must be positive", models.ErrInvalidArgument)
	}

	sum := new(big.Int)
	entries := make([]models.ScheduleEntry, len(offsets))
	for i := range offsets {
		if i > 0 && offsets[i] <= offsets[i-1] {
			return nil, fmt.Errorf("%w: offsets must be strictly increasing (index %d)", models.ErrInvalidArgument, i+1)
		}
		if err := policy.CheckOffset(offsets[i]); err != nil {
			return nil, fmt.Errorf("index %d: %w", i+1, err)
		}
		if amounts[i] == nil || amounts[i].Sign() <= 0 {
			return nil, fmt.Errorf("%w: amount at index %d must be positive", models.ErrInvalidArgument, i+1)
		}
		sum.Add(sum, amounts[i])
		entries[i] = models.ScheduleEntry{Offset: offsets[i], Amount: new(big.Int).Set(amounts[i])}
	}
	if sum.Cmp(total) != 0 {
		return nil, fmt.Errorf("%w: amounts sum to %s, total is %s", models.ErrInvalidArgument, sum, total)
	}

	return &models.InstallmentSchedule{
		Collection: collection,
		LandType:   landType,
		TotalPrice: new(big.Int).Set(total),
		Entries:    entries,
		UpdatedAt:  now,
	}, nil
}

// Snapshot copies a default schedule into a fresh token plan. The plan shares
// no memory with the schedule, so later schedule edits never reach it.
func Snapshot(schedule *models.InstallmentSchedule, tokenID *big.Int, startedAt time.Time) *models.InstallmentPlan {
	plan := &models.InstallmentPlan{
		Collection:   schedule.Collection,
		TokenID:      new(big.Int).Set(tokenID),
		LandType:     schedule.LandType,
		StartedAt:    startedAt,
		Installments: make([]models.Installment, len(schedule.Entries)),
	}
	for i, e := range schedule.Entries {
		plan.Installments[i] = models.Installment{
			Index:           uint64(i + 1),
			DueOffset:       e.Offset,
			ScheduledAmount: new(big.Int).Set(e.Amount),
		}
	}
	return plan
}

// CheckOrder enforces the payment order policy for index.
func CheckOrder(policy string, plan *models.InstallmentPlan, index uint64) error {
	if policy != OrderSequential {
		return nil
	}
	for i := uint64(1); i < index; i++ {
		in, _ := plan.Entry(i)
		if !in.Paid {
			return fmt.Errorf("%w: installment %d must be paid before %d", models.ErrOutOfOrder, i, index)
		}
	}
	return nil
}

// Overdue lists unpaid installments whose due time has passed.
func Overdue(policy PenaltyPolicy, plan *models.InstallmentPlan, now time.Time) []models.Installment {
	elapsed := now.Sub(plan.StartedAt)
	var out []models.Installment
	for _, in := range plan.Installments {
		if !in.Paid && elapsed > policy.DueAfter(in.DueOffset) {
			out = append(out, in)
		}
	}
	return out
}
