package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

type SaleRepo struct {
	db DBTX
}

func NewSaleRepo(db DBTX) *SaleRepo {
	return &SaleRepo{db: db}
}

func (r *SaleRepo) GetSale(ctx context.Context, addr common.Address) (*models.Sale, error) {
	var collection, owner string
	s := models.Sale{Address: addr}
	err := r.db.QueryRow(ctx, `
		SELECT collection, owner, expiry_seconds, agent_fee_percent, next_listing_id, created_at
		FROM sales WHERE address = $1
	`, addr.Hex()).Scan(&collection, &owner, &s.ExpirySeconds, &s.AgentFeePercent, &s.NextListingID, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, "sale "+addr.Hex())
	}
	s.Collection = common.HexToAddress(collection)
	s.Owner = common.HexToAddress(owner)
	return &s, nil
}

func (r *SaleRepo) PutSale(ctx context.Context, s *models.Sale) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales (address, collection, owner, expiry_seconds, agent_fee_percent, next_listing_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			owner = EXCLUDED.owner,
			expiry_seconds = EXCLUDED.expiry_seconds,
			agent_fee_percent = EXCLUDED.agent_fee_percent,
			next_listing_id = EXCLUDED.next_listing_id
	`, s.Address.Hex(), s.Collection.Hex(), s.Owner.Hex(), s.ExpirySeconds, s.AgentFeePercent, s.NextListingID, s.CreatedAt)
	return err
}

func (r *SaleRepo) IsBlacklisted(ctx context.Context, sale, account common.Address) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM sale_blacklist WHERE sale = $1 AND account = $2)
	`, sale.Hex(), account.Hex()).Scan(&exists)
	return exists, err
}

func (r *SaleRepo) SetBlacklisted(ctx context.Context, sale, account common.Address, listed bool) error {
	if listed {
		_, err := r.db.Exec(ctx, `
			INSERT INTO sale_blacklist (sale, account) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, sale.Hex(), account.Hex())
		return err
	}
	_, err := r.db.Exec(ctx, `
		DELETE FROM sale_blacklist WHERE sale = $1 AND account = $2
	`, sale.Hex(), account.Hex())
	return err
}
