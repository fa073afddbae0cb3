// Package store defines the transactional ledger storage used by the services.
package store

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

// Store runs ledger operations as serialized, all-or-nothing transactions.
// If fn returns an error every write made through tx is discarded.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside one ledger transaction.
// Getters return models.ErrNotFound when the row does not exist. Returned
// values are copies; changes are persisted only via the Put methods.
type Tx interface {
	// roles
	HasRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address) (bool, error)
	SetRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address, granted bool) (changed bool, err error)

	// factory
	GetFactory(ctx context.Context) (*models.Factory, error)
	PutFactory(ctx context.Context, f *models.Factory) error

	// collections and tokens
	GetCollection(ctx context.Context, addr common.Address) (*models.Collection, error)
	PutCollection(ctx context.Context, c *models.Collection) error
	GetToken(ctx context.Context, collection common.Address, id *big.Int) (*models.Token, error)
	InsertToken(ctx context.Context, t *models.Token) error
	CountTokens(ctx context.Context, collection, owner common.Address) (uint64, error)

	// sales
	GetSale(ctx context.Context, addr common.Address) (*models.Sale, error)
	PutSale(ctx context.Context, s *models.Sale) error
	IsBlacklisted(ctx context.Context, sale, account common.Address) (bool, error)
	SetBlacklisted(ctx context.Context, sale, account common.Address, listed bool) error

	// listings
	GetListing(ctx context.Context, sale common.Address, id uint64) (*models.Listing, error)
	PutListing(ctx context.Context, l *models.Listing) error
	ListListings(ctx context.Context, sale common.Address) ([]*models.Listing, error)

	// installments
	GetDefaultSchedule(ctx context.Context, collection common.Address, landType uint64) (*models.InstallmentSchedule, error)
	PutDefaultSchedule(ctx context.Context, s *models.InstallmentSchedule) error
	GetPlan(ctx context.Context, collection common.Address, tokenID *big.Int) (*models.InstallmentPlan, error)
	PutPlan(ctx context.Context, p *models.InstallmentPlan) error
	ListOpenPlans(ctx context.Context) ([]*models.InstallmentPlan, error)

	// balances
	GetBalance(ctx context.Context, scope, account common.Address) (*big.Int, error)
	AddBalance(ctx context.Context, scope, account common.Address, delta *big.Int) error

	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}
