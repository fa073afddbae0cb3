package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Listing statuses
const (
	ListingStatusActive  = "active"
	ListingStatusSoldOut = "sold_out"
)

// Listing is a purchasable land type in a sale's metadata registry.
type Listing struct {
	Sale      common.Address `json:"sale"`
	ID        uint64         `json:"metadata_id"`
	Price     *big.Int       `json:"price"`
	LandType  uint64         `json:"land_type"`
	UnitLimit uint64         `json:"unit_limit"`
	UnitsSold uint64         `json:"units_sold"`
}

// Status derives the listing state from its counters. Active -> SoldOut is only
// reversed by raising UnitLimit.
func (l *Listing) Status() string {
	if l.UnitsSold >= l.UnitLimit {
		return ListingStatusSoldOut
	}
	return ListingStatusActive
}

// RecordSale advances the sold counter.
func (l *Listing) RecordSale() error {
	if l.UnitsSold >= l.UnitLimit {
		return ErrLimitReached
	}
	l.UnitsSold++
	return nil
}

func (l *Listing) Clone() *Listing {
	c := *l
	c.Price = cloneInt(l.Price)
	return &c
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
