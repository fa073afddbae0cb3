package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Sale is one developer-sale instance bound to an asset collection.
type Sale struct {
	Address         common.Address `json:"address"`
	Collection      common.Address `json:"collection"`
	Owner           common.Address `json:"owner"`
	ExpirySeconds   int64          `json:"expiry_seconds"`
	AgentFeePercent uint64         `json:"agent_fee_percent"`
	NextListingID   uint64         `json:"next_listing_id"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (s *Sale) Clone() *Sale {
	c := *s
	return &c
}

// Purchase is the outcome of a successful Buy.
type Purchase struct {
	Sale            common.Address `json:"sale"`
	Collection      common.Address `json:"collection"`
	AssetID         string         `json:"asset_id"`
	MetadataID      uint64         `json:"metadata_id"`
	Price           string         `json:"price"`
	Paid            string         `json:"paid"`
	Buyer           common.Address `json:"buyer"`
	Agent           common.Address `json:"agent"`
	InstallmentPlan bool           `json:"installment_plan"`
	PurchasedAt     time.Time      `json:"purchased_at"`
}
