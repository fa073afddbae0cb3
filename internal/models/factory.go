package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Factory deploys collections and sales for developers against a fee.
type Factory struct {
	Address common.Address `json:"address"`
	Owner   common.Address `json:"owner"`
	Fee     *big.Int       `json:"fee"`
	Nonce   uint64         `json:"nonce"`
}

func (f *Factory) Clone() *Factory {
	c := *f
	c.Fee = cloneInt(f.Fee)
	return &c
}

// Instance is a collection and its sale created together.
type Instance struct {
	Collection *Collection `json:"collection"`
	Sale       *Sale       `json:"sale"`
}
