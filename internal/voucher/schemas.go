package voucher

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const SchemaVersion = "1.0.0"

// LandSaleSchema authorizes one primary sale redemption on a developer sale.
var LandSaleSchema = Schema{
	Name:    "LandSale",
	Version: SchemaVersion,
	Fields: []Field{
		{Name: "_wallet", Type: "address"},
		{Name: "_tokenId", Type: "uint256"},
		{Name: "_metadataId", Type: "uint256"},
		{Name: "_agent", Type: "address"},
		{Name: "_updateInstallment", Type: "bool"},
		{Name: "_signatureTime", Type: "uint256"},
	},
}

// MarketplaceSchema is the resale listing authorization.
var MarketplaceSchema = Schema{
	Name:    "LandDigitalSignature",
	Version: SchemaVersion,
	Fields: []Field{
		{Name: "landId", Type: "uint256"},
		{Name: "landAddress", Type: "address"},
		{Name: "price", Type: "uint256"},
		{Name: "timeStamp", Type: "uint256"},
		{Name: "message", Type: "string"},
	},
}

// AuctionSchema is the auction settlement authorization. Same struct name as
// MarketplaceSchema, different field set, so the type hashes differ.
var AuctionSchema = Schema{
	Name:    "LandDigitalSignature",
	Version: SchemaVersion,
	Fields: []Field{
		{Name: "landId", Type: "uint256"},
		{Name: "price", Type: "uint256"},
		{Name: "timeStamp", Type: "uint256"},
		{Name: "landAddress", Type: "address"},
		{Name: "highestBidder", Type: "address"},
		{Name: "message", Type: "string"},
	},
}

// LandSale is the payload of a primary sale voucher.
type LandSale struct {
	Wallet            common.Address
	TokenID           *big.Int
	MetadataID        *big.Int
	Agent             common.Address
	UpdateInstallment bool
	SignatureTime     *big.Int
}

func (v LandSale) Values() []any {
	return []any{v.Wallet, v.TokenID, v.MetadataID, v.Agent, v.UpdateInstallment, v.SignatureTime}
}

// Digest binds the voucher to the sale contract and chain.
func (v LandSale) Digest(chainID *big.Int, sale common.Address) (common.Hash, error) {
	return LandSaleSchema.Digest(LandSaleSchema.Domain(chainID, sale), v.Values()...)
}

type MarketplaceListing struct {
	LandID      *big.Int
	LandAddress common.Address
	Price       *big.Int
	TimeStamp   *big.Int
	Message     string
}

func (v MarketplaceListing) Values() []any {
	return []any{v.LandID, v.LandAddress, v.Price, v.TimeStamp, v.Message}
}

func (v MarketplaceListing) Digest(chainID *big.Int, marketplace common.Address) (common.Hash, error) {
	return MarketplaceSchema.Digest(MarketplaceSchema.Domain(chainID, marketplace), v.Values()...)
}

type AuctionSettlement struct {
	LandID        *big.Int
	Price         *big.Int
	TimeStamp     *big.Int
	LandAddress   common.Address
	HighestBidder common.Address
	Message       string
}

func (v AuctionSettlement) Values() []any {
	return []any{v.LandID, v.Price, v.TimeStamp, v.LandAddress, v.HighestBidder, v.Message}
}

func (v AuctionSettlement) Digest(chainID *big.Int, auction common.Address) (common.Hash, error) {
	return AuctionSchema.Digest(AuctionSchema.Domain(chainID, auction), v.Values()...)
}
