package installments

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/landsale/backend/internal/models"
)

// Penalty modes
const (
	PenaltyOneShot = "one_shot" // +BPS once the due time has passed
	PenaltyStepped = "stepped"  // +BPS per started Period past due, on the base amount
)

const bpsDenominator = 10_000

// PenaltyPolicy prices a late installment. It is a pure function of the base
// amount, the due offset and the time elapsed since the plan started.
type PenaltyPolicy struct {
	Mode   string
	BPS    int64
	Grace  time.Duration
	Period time.Duration // stepped mode only
	Unit   time.Duration // length of one schedule offset unit
}

// DefaultPenaltyPolicy is +10% once an installment is past due, offsets in seconds.
func DefaultPenaltyPolicy() PenaltyPolicy {
	return PenaltyPolicy{
		Mode: PenaltyOneShot,
		BPS:  1000,
		Unit: time.Second,
	}
}

func (p PenaltyPolicy) Validate() error {
	switch p.Mode {
	case PenaltyOneShot:
	case PenaltyStepped:
		if p.Period <= 0 {
			return fmt.Errorf("stepped penalty requires a positive period")
		}
	default:
		return fmt.Errorf("unknown penalty mode %q", p.Mode)
	}
	if p.BPS < 0 {
		return fmt.Errorf("penalty bps must not be negative")
	}
	if p.Grace < 0 {
		return fmt.Errorf("grace must not be negative")
	}
	if p.Unit <= 0 {
		return fmt.Errorf("installment unit must be positive")
	}
	return nil
}

// MaxOffset is the largest schedule offset whose due time fits in a time.Duration.
func (p PenaltyPolicy) MaxOffset() uint64 {
	if p.Unit <= 0 || p.Grace < 0 {
		return 0
	}
	return uint64((math.MaxInt64 - p.Grace) / p.Unit)
}

// CheckOffset rejects offsets whose due time cannot be represented.
func (p PenaltyPolicy) CheckOffset(offset uint64) error {
	if offset > p.MaxOffset() {
		return fmt.Errorf("%w: offset %d exceeds maximum %d", models.ErrInvalidArgument, offset, p.MaxOffset())
	}
	return nil
}

// DueAfter returns how long after plan start the installment becomes late.
// Offsets past MaxOffset saturate to the largest duration, so they are never late.
func (p PenaltyPolicy) DueAfter(dueOffset uint64) time.Duration {
	if dueOffset > p.MaxOffset() {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(dueOffset)*p.Unit + p.Grace
}

// Required returns the amount owed for an installment right now.
// Paying at exactly the due time is on time.
func (p PenaltyPolicy) Required(base *big.Int, dueOffset uint64, elapsed time.Duration) *big.Int {
	due := p.DueAfter(dueOffset)
	if elapsed <= due || p.BPS == 0 {
		return new(big.Int).Set(base)
	}
	overdue := elapsed - due

	steps := big.NewInt(1)
	if p.Mode == PenaltyStepped {
		n := overdue / p.Period
		if overdue%p.Period != 0 {
			n++
		}
		steps.SetInt64(int64(n))
	}

	rate := new(big.Int).Mul(big.NewInt(p.BPS), steps)
	surcharge := new(big.Int).Mul(base, rate)
	surcharge.Quo(surcharge, big.NewInt(bpsDenominator))
	return surcharge.Add(surcharge, base)
}
