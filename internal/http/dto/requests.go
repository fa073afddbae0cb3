package dto

// Amounts ending in _eth are decimal ether strings, e.g. "0.15".

type ChallengeRequest struct {
	Wallet string `json:"wallet"`
}

type LoginRequest struct {
	Wallet    string `json:"wallet"`
	Signature string `json:"signature"`
}

type BuyRequest struct {
	AssetID         string `json:"asset_id"`
	MetadataID      uint64 `json:"metadata_id"`
	SignedAt        int64  `json:"signed_at"`
	Agent           string `json:"agent,omitempty"`
	InstallmentPlan bool   `json:"installment_plan"`
	Signature       string `json:"signature"`
	ValueETH        string `json:"value_eth"`
}

type AddListingRequest struct {
	PriceETH  string `json:"price_eth"`
	LandType  uint64 `json:"land_type"`
	UnitLimit uint64 `json:"unit_limit"`
}

type UpdatePriceRequest struct {
	PriceETH string `json:"price_eth"`
}

type UpdateUnitLimitRequest struct {
	UnitLimit uint64 `json:"unit_limit"`
}

type BlacklistRequest struct {
	Account string `json:"account"`
}

type UpdateExpiryRequest struct {
	ExpirySeconds int64 `json:"expiry_seconds"`
}

type ScheduleRequest struct {
	TotalPriceETH string   `json:"total_price_eth"`
	Offsets       []uint64 `json:"offsets"`
	AmountsETH    []string `json:"amounts_eth"`
}

type PayInstallmentRequest struct {
	ValueETH string `json:"value_eth"`
}

// Factory

type CollectionParams struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	BaseURI string `json:"base_uri"`
}

type SaleParams struct {
	ExpirySeconds   int64  `json:"expiry_seconds,omitempty"`
	AgentFeePercent *uint64 `json:"agent_fee_percent,omitempty"` // nil: AGENT_FEE_PERCENT
}

type CreateCollectionRequest struct {
	CollectionParams
	ValueETH string `json:"value_eth"`
}

type CreateSaleRequest struct {
	Collection string `json:"collection"`
	SaleParams
	ValueETH string `json:"value_eth"`
}

type CreateInstanceRequest struct {
	Collection CollectionParams `json:"collection"`
	Sale       SaleParams       `json:"sale"`
	ValueETH   string           `json:"value_eth"`
}

type UpdateFeeRequest struct {
	FeeETH string `json:"fee_eth"`
}

type RoleRequest struct {
	Role    string `json:"role"` // DEFAULT_ADMIN / DEVELOPER / VALIDATOR / MINTER или 0x-hash
	Account string `json:"account"`
}
