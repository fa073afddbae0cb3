package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// CollectionService issues and reads assets of a collection.
type CollectionService struct {
	ledger *Ledger
	log    *zap.Logger
}

func NewCollectionService(ledger *Ledger, log *zap.Logger) *CollectionService {
	return &CollectionService{ledger: ledger, log: log}
}

type MintRequest struct {
	Collection common.Address
	Minter     common.Address
	To         common.Address
	TokenID    *big.Int
	LandType   uint64
	MetadataID uint64
}

// Mint issues a token directly. The minter must hold MINTER on the collection.
func (s *CollectionService) Mint(ctx context.Context, req MintRequest) (*models.Token, error) {
	var tok *models.Token
	err := s.ledger.exec(ctx, func(o *op) error {
		var err error
		tok, err = mintToken(ctx, o, req)
		if err != nil {
			return err
		}
		o.emit(events.EventTokenMinted, map[string]any{
			"collection": req.Collection.Hex(),
			"token_id":   tok.ID.String(),
			"owner":      tok.Owner.Hex(),
			"land_type":  tok.LandType,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// mintToken is shared by Mint and Buy.
func mintToken(ctx context.Context, o *op, req MintRequest) (*models.Token, error) {
	if _, err := o.tx.GetCollection(ctx, req.Collection); err != nil {
		return nil, err
	}
	if err := o.requireRole(ctx, req.Collection, rbac.MinterRole, req.Minter); err != nil {
		return nil, err
	}
	if req.TokenID == nil || req.TokenID.Sign() < 0 {
		return nil, fmt.Errorf("%w: token id", models.ErrInvalidArgument)
	}
	if req.To == (common.Address{}) {
		return nil, fmt.Errorf("%w: mint to zero address", models.ErrInvalidArgument)
	}

	tok := &models.Token{
		Collection: req.Collection,
		ID:         new(big.Int).Set(req.TokenID),
		Owner:      req.To,
		LandType:   req.LandType,
		MetadataID: req.MetadataID,
		MintedAt:   o.now,
	}
	if err := o.tx.InsertToken(ctx, tok); err != nil {
		return nil, err
	}
	if err := o.audit(ctx, req.Minter, "token_minted", "token", tokenRef(req.Collection, tok.ID), map[string]any{
		"owner":       req.To.Hex(),
		"land_type":   req.LandType,
		"metadata_id": req.MetadataID,
	}); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *CollectionService) GetCollection(ctx context.Context, addr common.Address) (*models.Collection, error) {
	var c *models.Collection
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCollection(ctx, addr)
		return err
	})
	return c, err
}

func (s *CollectionService) GetToken(ctx context.Context, collection common.Address, tokenID *big.Int) (*models.Token, error) {
	var t *models.Token
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		t, err = tx.GetToken(ctx, collection, tokenID)
		return err
	})
	return t, err
}

func (s *CollectionService) OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	t, err := s.GetToken(ctx, collection, tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return t.Owner, nil
}

func (s *CollectionService) BalanceOf(ctx context.Context, collection, owner common.Address) (uint64, error) {
	var n uint64
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCollection(ctx, collection); err != nil {
			return err
		}
		var err error
		n, err = tx.CountTokens(ctx, collection, owner)
		return err
	})
	return n, err
}

// TokenURI fails with ErrNotFound for tokens that were never minted.
func (s *CollectionService) TokenURI(ctx context.Context, collection common.Address, tokenID *big.Int) (string, error) {
	var uri string
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		c, err := tx.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		if _, err := tx.GetToken(ctx, collection, tokenID); err != nil {
			return err
		}
		uri = c.TokenURI(tokenID)
		return nil
	})
	return uri, err
}

func tokenRef(collection common.Address, id *big.Int) string {
	return collection.Hex() + "/" + id.String()
}
