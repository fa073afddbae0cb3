package repositories

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

type CollectionRepo struct {
	db DBTX
}

func NewCollectionRepo(db DBTX) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) GetCollection(ctx context.Context, addr common.Address) (*models.Collection, error) {
	var owner string
	c := models.Collection{Address: addr}
	err := r.db.QueryRow(ctx, `
		SELECT name, symbol, base_uri, owner, created_at FROM collections WHERE address = $1
	`, addr.Hex()).Scan(&c.Name, &c.Symbol, &c.BaseURI, &owner, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "collection "+addr.Hex())
	}
	c.Owner = common.HexToAddress(owner)
	return &c, nil
}

func (r *CollectionRepo) PutCollection(ctx context.Context, c *models.Collection) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO collections (address, name, symbol, base_uri, owner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			base_uri = EXCLUDED.base_uri,
			owner = EXCLUDED.owner
	`, c.Address.Hex(), c.Name, c.Symbol, c.BaseURI, c.Owner.Hex(), c.CreatedAt)
	return err
}

func (r *CollectionRepo) GetToken(ctx context.Context, collection common.Address, id *big.Int) (*models.Token, error) {
	var owner string
	t := models.Token{Collection: collection, ID: new(big.Int).Set(id)}
	err := r.db.QueryRow(ctx, `
		SELECT owner, land_type, metadata_id, minted_at FROM tokens
		WHERE collection = $1 AND token_id = $2::numeric
	`, collection.Hex(), numeric(id)).Scan(&owner, &t.LandType, &t.MetadataID, &t.MintedAt)
	if err != nil {
		return nil, notFound(err, "token "+id.String())
	}
	t.Owner = common.HexToAddress(owner)
	return &t, nil
}

func (r *CollectionRepo) InsertToken(ctx context.Context, t *models.Token) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO tokens (collection, token_id, owner, land_type, metadata_id, minted_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`, t.Collection.Hex(), numeric(t.ID), t.Owner.Hex(), t.LandType, t.MetadataID, t.MintedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token %s: %w", t.ID, models.ErrTokenExists)
	}
	return nil
}

func (r *CollectionRepo) CountTokens(ctx context.Context, collection, owner common.Address) (uint64, error) {
	var n uint64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM tokens WHERE collection = $1 AND owner = $2
	`, collection.Hex(), owner.Hex()).Scan(&n)
	return n, err
}
