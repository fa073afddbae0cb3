package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// ledgerLockKey serializes every ledger transaction across api replicas.
const ledgerLockKey int64 = 0x4c414e44

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL ledger engine.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{pool: pool, log: log}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", ledgerLockKey); err != nil {
		return fmt.Errorf("ledger lock: %w", err)
	}

	if err := fn(newLedgerTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.log.Error("ledger commit failed", zap.Error(err))
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ledgerTx binds every repository to one pgx transaction.
type ledgerTx struct {
	*RoleRepo
	*FactoryRepo
	*CollectionRepo
	*SaleRepo
	*ListingRepo
	*InstallmentRepo
	*BalanceRepo
	*AuditRepo
}

var _ store.Tx = (*ledgerTx)(nil)

func newLedgerTx(db DBTX) *ledgerTx {
	return &ledgerTx{
		RoleRepo:        NewRoleRepo(db),
		FactoryRepo:     NewFactoryRepo(db),
		CollectionRepo:  NewCollectionRepo(db),
		SaleRepo:        NewSaleRepo(db),
		ListingRepo:     NewListingRepo(db),
		InstallmentRepo: NewInstallmentRepo(db),
		BalanceRepo:     NewBalanceRepo(db),
		AuditRepo:       NewAuditRepo(db),
	}
}

// notFound maps pgx.ErrNoRows to models.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return err
}

// numeric renders a wei amount for a `$n::numeric` parameter.
func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad numeric value %q", s)
	}
	return v, nil
}
