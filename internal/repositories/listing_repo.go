package repositories

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

type ListingRepo struct {
	db DBTX
}

func NewListingRepo(db DBTX) *ListingRepo {
	return &ListingRepo{db: db}
}

func (r *ListingRepo) GetListing(ctx context.Context, sale common.Address, id uint64) (*models.Listing, error) {
	var price string
	l := models.Listing{Sale: sale, ID: id}
	err := r.db.QueryRow(ctx, `
		SELECT price::text, land_type, unit_limit, units_sold FROM listings
		WHERE sale = $1 AND metadata_id = $2
	`, sale.Hex(), id).Scan(&price, &l.LandType, &l.UnitLimit, &l.UnitsSold)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("listing %d", id))
	}
	if l.Price, err = parseNumeric(price); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepo) PutListing(ctx context.Context, l *models.Listing) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO listings (sale, metadata_id, price, land_type, unit_limit, units_sold)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (sale, metadata_id) DO UPDATE SET
			price = EXCLUDED.price,
			land_type = EXCLUDED.land_type,
			unit_limit = EXCLUDED.unit_limit,
			units_sold = EXCLUDED.units_sold
	`, l.Sale.Hex(), l.ID, numeric(l.Price), l.LandType, l.UnitLimit, l.UnitsSold)
	return err
}

func (r *ListingRepo) ListListings(ctx context.Context, sale common.Address) ([]*models.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT metadata_id, price::text, land_type, unit_limit, units_sold FROM listings
		WHERE sale = $1 ORDER BY metadata_id
	`, sale.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Listing
	for rows.Next() {
		var price string
		l := models.Listing{Sale: sale}
		if err := rows.Scan(&l.ID, &price, &l.LandType, &l.UnitLimit, &l.UnitsSold); err != nil {
			return nil, err
		}
		if l.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
