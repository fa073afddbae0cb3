package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

type FactoryRepo struct {
	db DBTX
}

func NewFactoryRepo(db DBTX) *FactoryRepo {
	return &FactoryRepo{db: db}
}

func (r *FactoryRepo) GetFactory(ctx context.Context) (*models.Factory, error) {
	var addr, owner, fee string
	var f models.Factory
	err := r.db.QueryRow(ctx, `
		SELECT address, owner, fee::text, nonce FROM factory WHERE id
	`).Scan(&addr, &owner, &fee, &f.Nonce)
	if err != nil {
		return nil, notFound(err, "factory")
	}
	f.Address = common.HexToAddress(addr)
	f.Owner = common.HexToAddress(owner)
	if f.Fee, err = parseNumeric(fee); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FactoryRepo) PutFactory(ctx context.Context, f *models.Factory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO factory (id, address, owner, fee, nonce) VALUES (true, $1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			owner = EXCLUDED.owner,
			fee = EXCLUDED.fee,
			nonce = EXCLUDED.nonce
	`, f.Address.Hex(), f.Owner.Hex(), numeric(f.Fee), f.Nonce)
	return err
}
