package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ScheduleEntry is one step of a default schedule. Offset is counted in
// installment time units from the start of the plan.
type ScheduleEntry struct {
	Offset uint64   `json:"offset"`
	Amount *big.Int `json:"amount"`
}

// InstallmentSchedule is the default schedule of a land type in a collection.
type InstallmentSchedule struct {
	Collection common.Address  `json:"collection"`
	LandType   uint64          `json:"land_type"`
	TotalPrice *big.Int        `json:"total_price"`
	Entries    []ScheduleEntry `json:"entries"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s *InstallmentSchedule) Clone() *InstallmentSchedule {
	c := *s
	c.TotalPrice = cloneInt(s.TotalPrice)
	c.Entries = make([]ScheduleEntry, len(s.Entries))
	for i, e := range s.Entries {
		c.Entries[i] = ScheduleEntry{Offset: e.Offset, Amount: cloneInt(e.Amount)}
	}
	return &c
}

// Installment is one entry of a token plan. Index is 1-based.
type Installment struct {
	Index           uint64     `json:"index"`
	DueOffset       uint64     `json:"due_offset"`
	ScheduledAmount *big.Int   `json:"scheduled_amount"`
	Paid            bool       `json:"paid"`
	PaidAmount      *big.Int   `json:"paid_amount,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// InstallmentPlan is the per-token copy of a default schedule taken at mint time.
type InstallmentPlan struct {
	Collection   common.Address `json:"collection"`
	TokenID      *big.Int       `json:"token_id"`
	LandType     uint64         `json:"land_type"`
	StartedAt    time.Time      `json:"started_at"`
	Installments []Installment  `json:"installments"`
}

// Entry returns the installment with the given 1-based index.
func (p *InstallmentPlan) Entry(index uint64) (*Installment, bool) {
	if index == 0 || index > uint64(len(p.Installments)) {
		return nil, false
	}
	return &p.Installments[index-1], true
}

func (p *InstallmentPlan) IsFullyPaid() bool {
	for _, in := range p.Installments {
		if !in.Paid {
			return false
		}
	}
	return true
}

func (p *InstallmentPlan) Clone() *InstallmentPlan {
	c := *p
	c.TokenID = cloneInt(p.TokenID)
	c.Installments = make([]Installment, len(p.Installments))
	for i, in := range p.Installments {
		cp := in
		cp.ScheduledAmount = cloneInt(in.ScheduledAmount)
		cp.PaidAmount = cloneInt(in.PaidAmount)
		if in.PaidAt != nil {
			t := *in.PaidAt
			cp.PaidAt = &t
		}
		c.Installments[i] = cp
	}
	return &c
}
