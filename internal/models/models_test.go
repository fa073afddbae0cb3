package models

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestListingRecordSale(t *testing.T) {
	l := &Listing{ID: 1, Price: big.NewInt(100), UnitLimit: 2}

	for i := 0; i < 2; i++ {
		if l.Status() != ListingStatusActive {
			t.Fatalf("sale %d: status = %s", i, l.Status())
		}
		if err := l.RecordSale(); err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
	}
	if l.Status() != ListingStatusSoldOut {
		t.Fatalf("status = %s, want sold_out", l.Status())
	}
	if err := l.RecordSale(); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached", err)
	}
	if l.UnitsSold != 2 {
		t.Fatalf("units sold = %d after a rejected sale", l.UnitsSold)
	}

	// raising the limit reopens the listing
	l.UnitLimit = 3
	if l.Status() != ListingStatusActive {
		t.Fatalf("status = %s after raising the limit", l.Status())
	}
}

func TestListingClone(t *testing.T) {
	l := &Listing{Price: big.NewInt(100)}
	c := l.Clone()
	c.Price.SetInt64(1)
	if l.Price.Int64() != 100 {
		t.Fatal("clone shares the price")
	}
}

func TestPlanEntry(t *testing.T) {
	p := &InstallmentPlan{Installments: []Installment{{Index: 1}, {Index: 2}, {Index: 3}}}

	tests := []struct {
		index uint64
		ok    bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{4, false},
	}
	for _, tt := range tests {
		in, ok := p.Entry(tt.index)
		if ok != tt.ok || (ok && in.Index != tt.index) {
			t.Errorf("Entry(%d) = %v, %v", tt.index, in, ok)
		}
	}

	if p.IsFullyPaid() {
		t.Fatal("unpaid plan reported as paid")
	}
	for i := range p.Installments {
		p.Installments[i].Paid = true
	}
	if !p.IsFullyPaid() {
		t.Fatal("paid plan reported as open")
	}
}

func TestPlanCloneIsDeep(t *testing.T) {
	p := &InstallmentPlan{
		TokenID:      big.NewInt(1),
		Installments: []Installment{{Index: 1, ScheduledAmount: big.NewInt(10)}},
	}
	c := p.Clone()
	c.Installments[0].Paid = true
	c.Installments[0].ScheduledAmount.SetInt64(99)
	c.TokenID.SetInt64(2)

	if p.Installments[0].Paid || p.Installments[0].ScheduledAmount.Int64() != 10 || p.TokenID.Int64() != 1 {
		t.Fatalf("original changed: %+v", p)
	}
}

func TestTokenURI(t *testing.T) {
	c := &Collection{BaseURI: "ipfs://land/"}
	if got := c.TokenURI(big.NewInt(42)); got != "ipfs://land/42" {
		t.Errorf("TokenURI = %q", got)
	}
	if got := (&Collection{}).TokenURI(big.NewInt(42)); got != "" {
		t.Errorf("empty base URI: TokenURI = %q", got)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrSignatureExpired, "signature_expired"},
		{fmt.Errorf("listing 4: %w", ErrLimitReached), "limit_reached"},
		{fmt.Errorf("installment 2: %w", ErrAlreadyPaid), "already_paid"},
		{ErrOutOfOrder, "out_of_order"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
