package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Collection is an isolated asset collection (one per tenant).
type Collection struct {
	Address   common.Address `json:"address"`
	Name      string         `json:"name"`
	Symbol    string         `json:"symbol"`
	BaseURI   string         `json:"base_uri"`
	Owner     common.Address `json:"owner"`
	CreatedAt time.Time      `json:"created_at"`
}

func (c *Collection) Clone() *Collection {
	cp := *c
	return &cp
}

// TokenURI joins the base URI and the token id.
func (c *Collection) TokenURI(tokenID *big.Int) string {
	if c.BaseURI == "" {
		return ""
	}
	return c.BaseURI + tokenID.String()
}

type Token struct {
	Collection common.Address `json:"collection"`
	ID         *big.Int       `json:"token_id"`
	Owner      common.Address `json:"owner"`
	LandType   uint64         `json:"land_type"`
	MetadataID uint64         `json:"metadata_id"`
	MintedAt   time.Time      `json:"minted_at"`
}

func (t *Token) Clone() *Token {
	c := *t
	c.ID = cloneInt(t.ID)
	return &c
}
