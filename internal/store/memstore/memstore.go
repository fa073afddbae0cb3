// Package memstore is an in-memory store.Store. One mutex serializes all
// transactions; a failed transaction is rolled back from an undo journal.
package memstore

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/store"
)

type roleKey struct {
	scope   common.Address
	role    common.Hash
	account common.Address
}

type pairKey struct {
	a, b common.Address
}

type tokenKey struct {
	collection common.Address
	id         string
}

type listingKey struct {
	sale common.Address
	id   uint64
}

type scheduleKey struct {
	collection common.Address
	landType   uint64
}

type Store struct {
	mu sync.Mutex

	roles       map[roleKey]struct{}
	factory     *models.Factory
	collections map[common.Address]*models.Collection
	tokens      map[tokenKey]*models.Token
	sales       map[common.Address]*models.Sale
	blacklist   map[pairKey]struct{}
	listings    map[listingKey]*models.Listing
	schedules   map[scheduleKey]*models.InstallmentSchedule
	plans       map[tokenKey]*models.InstallmentPlan
	balances    map[pairKey]*big.Int
	audit       []*models.AuditLog
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		roles:       make(map[roleKey]struct{}),
		collections: make(map[common.Address]*models.Collection),
		tokens:      make(map[tokenKey]*models.Token),
		sales:       make(map[common.Address]*models.Sale),
		blacklist:   make(map[pairKey]struct{}),
		listings:    make(map[listingKey]*models.Listing),
		schedules:   make(map[scheduleKey]*models.InstallmentSchedule),
		plans:       make(map[tokenKey]*models.InstallmentPlan),
		balances:    make(map[pairKey]*big.Int),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(tx)
}

// AuditTrail returns a copy of the audit entries written so far.
func (s *Store) AuditTrail() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, len(s.audit))
	for i, e := range s.audit {
		out[i] = *e
	}
	return out
}

// GetByEntity mirrors repositories.AuditRepo: newest first, paged.
func (s *Store) GetByEntity(ctx context.Context, entityType, entityRef string, limit, offset int) ([]models.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AuditLog
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.audit[i]
		if e.EntityType != entityType || e.EntityRef != entityRef {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// remember records how to restore m[k] to its current state.
func remember[K comparable, V any](t *memTx, m map[K]V, k K) {
	old, had := m[k]
	t.undo = append(t.undo, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// --- roles ---

func (t *memTx) HasRole(_ context.Context, scope common.Address, role common.Hash, account common.Address) (bool, error) {
	_, ok := t.s.roles[roleKey{scope, role, account}]
	return ok, nil
}

func (t *memTx) SetRole(_ context.Context, scope common.Address, role common.Hash, account common.Address, granted bool) (bool, error) {
	k := roleKey{scope, role, account}
	_, has := t.s.roles[k]
	if has == granted {
		return false, nil
	}
	remember(t, t.s.roles, k)
	if granted {
		t.s.roles[k] = struct{}{}
	} else {
		delete(t.s.roles, k)
	}
	return true, nil
}

// --- factory ---

func (t *memTx) GetFactory(_ context.Context) (*models.Factory, error) {
	if t.s.factory == nil {
		return nil, fmt.Errorf("factory: %w", models.ErrNotFound)
	}
	return t.s.factory.Clone(), nil
}

func (t *memTx) PutFactory(_ context.Context, f *models.Factory) error {
	old := t.s.factory
	t.undo = append(t.undo, func() { t.s.factory = old })
	t.s.factory = f.Clone()
	return nil
}

// --- collections & tokens ---

func (t *memTx) GetCollection(_ context.Context, addr common.Address) (*models.Collection, error) {
	c, ok := t.s.collections[addr]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", addr.Hex(), models.ErrNotFound)
	}
	return c.Clone(), nil
}

func (t *memTx) PutCollection(_ context.Context, c *models.Collection) error {
	remember(t, t.s.collections, c.Address)
	t.s.collections[c.Address] = c.Clone()
	return nil
}

func (t *memTx) GetToken(_ context.Context, collection common.Address, id *big.Int) (*models.Token, error) {
	tok, ok := t.s.tokens[tokenKey{collection, id.String()}]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", id, models.ErrNotFound)
	}
	return tok.Clone(), nil
}

func (t *memTx) InsertToken(_ context.Context, tok *models.Token) error {
	k := tokenKey{tok.Collection, tok.ID.String()}
	if _, ok := t.s.tokens[k]; ok {
		return fmt.Errorf("token %s: %w", tok.ID, models.ErrTokenExists)
	}
	remember(t, t.s.tokens, k)
	t.s.tokens[k] = tok.Clone()
	return nil
}

func (t *memTx) CountTokens(_ context.Context, collection, owner common.Address) (uint64, error) {
	var n uint64
	for k, tok := range t.s.tokens {
		if k.collection == collection && tok.Owner == owner {
			n++
		}
	}
	return n, nil
}

// --- sales ---

func (t *memTx) GetSale(_ context.Context, addr common.Address) (*models.Sale, error) {
	s, ok := t.s.sales[addr]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", addr.Hex(), models.ErrNotFound)
	}
	return s.Clone(), nil
}

func (t *memTx) PutSale(_ context.Context, s *models.Sale) error {
	remember(t, t.s.sales, s.Address)
	t.s.sales[s.Address] = s.Clone()
	return nil
}

func (t *memTx) IsBlacklisted(_ context.Context, sale, account common.Address) (bool, error) {
	_, ok := t.s.blacklist[pairKey{sale, account}]
	return ok, nil
}

func (t *memTx) SetBlacklisted(_ context.Context, sale, account common.Address, listed bool) error {
	k := pairKey{sale, account}
	remember(t, t.s.blacklist, k)
	if listed {
		t.s.blacklist[k] = struct{}{}
	} else {
		delete(t.s.blacklist, k)
	}
	return nil
}

// --- listings ---

func (t *memTx) GetListing(_ context.Context, sale common.Address, id uint64) (*models.Listing, error) {
	l, ok := t.s.listings[listingKey{sale, id}]
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}
	return l.Clone(), nil
}

func (t *memTx) PutListing(_ context.Context, l *models.Listing) error {
	k := listingKey{l.Sale, l.ID}
	remember(t, t.s.listings, k)
	t.s.listings[k] = l.Clone()
	return nil
}

func (t *memTx) ListListings(_ context.Context, sale common.Address) ([]*models.Listing, error) {
	var out []*models.Listing
	for k, l := range t.s.listings {
		if k.sale == sale {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- installments ---

func (t *memTx) GetDefaultSchedule(_ context.Context, collection common.Address, landType uint64) (*models.InstallmentSchedule, error) {
	s, ok := t.s.schedules[scheduleKey{collection, landType}]
	if !ok {
		return nil, fmt.Errorf("schedule for land type %d: %w", landType, models.ErrNotFound)
	}
	return s.Clone(), nil
}

func (t *memTx) PutDefaultSchedule(_ context.Context, s *models.InstallmentSchedule) error {
	k := scheduleKey{s.Collection, s.LandType}
	remember(t, t.s.schedules, k)
	t.s.schedules[k] = s.Clone()
	return nil
}

func (t *memTx) GetPlan(_ context.Context, collection common.Address, tokenID *big.Int) (*models.InstallmentPlan, error) {
	p, ok := t.s.plans[tokenKey{collection, tokenID.String()}]
	if !ok {
		return nil, fmt.Errorf("installment plan for token %s: %w", tokenID, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (t *memTx) PutPlan(_ context.Context, p *models.InstallmentPlan) error {
	k := tokenKey{p.Collection, p.TokenID.String()}
	remember(t, t.s.plans, k)
	t.s.plans[k] = p.Clone()
	return nil
}

func (t *memTx) ListOpenPlans(_ context.Context) ([]*models.InstallmentPlan, error) {
	var out []*models.InstallmentPlan
	for _, p := range t.s.plans {
		if !p.IsFullyPaid() {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Collection != out[j].Collection {
			return out[i].Collection.Cmp(out[j].Collection) < 0
		}
		return out[i].TokenID.Cmp(out[j].TokenID) < 0
	})
	return out, nil
}

// --- balances ---

func (t *memTx) GetBalance(_ context.Context, scope, account common.Address) (*big.Int, error) {
	b, ok := t.s.balances[pairKey{scope, account}]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(b), nil
}

func (t *memTx) AddBalance(_ context.Context, scope, account common.Address, delta *big.Int) error {
	k := pairKey{scope, account}
	next := new(big.Int).Set(delta)
	if cur, ok := t.s.balances[k]; ok {
		next.Add(next, cur)
	}
	if next.Sign() < 0 {
		return fmt.Errorf("balance of %s: %w", account.Hex(), models.ErrInvalidAmount)
	}
	remember(t, t.s.balances, k)
	t.s.balances[k] = next
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, entry *models.AuditLog) error {
	n := len(t.s.audit)
	t.undo = append(t.undo, func() { t.s.audit = t.s.audit[:n] })
	e := *entry
	t.s.audit = append(t.s.audit, &e)
	return nil
}
