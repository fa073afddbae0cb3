package services

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/installments"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store/memstore"
	"github.com/landsale/backend/internal/units"
	"github.com/landsale/backend/internal/voucher"
	"go.uber.org/zap"
)

const testExpiry = 3600

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, stream string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stream != events.StreamLedger {
		panic("unexpected stream " + stream)
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type account struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newAccount(t *testing.T) account {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return account{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// fixture is a factory with one developer and one instance created by them.
type fixture struct {
	t   *testing.T
	ctx context.Context
	now time.Time

	cfg   *config.Config
	store *memstore.Store
	pub   *recordingPublisher

	factories    *FactoryService
	sales        *SaleService
	installments *InstallmentService
	roles        *RoleService
	collections  *CollectionService
	balances     *BalanceService

	owner    account
	dev      account
	factory  *models.Factory
	instance *models.Instance
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		now:   time.Unix(1_700_000_000, 0).UTC(),
		store: memstore.New(),
		pub:   &recordingPublisher{},
		cfg: &config.Config{
			ChainID:          big.NewInt(31337),
			DefaultExpiry:    24 * time.Hour,
			Penalty:          installments.DefaultPenaltyPolicy(),
			InstallmentOrder: installments.OrderAny,
		},
		owner: newAccount(t),
		dev:   newAccount(t),
	}

	log := zap.NewNop()
	ledger := NewLedger(f.store, f.pub, log)
	ledger.SetClock(func() time.Time { return f.now })

	f.factories = NewFactoryService(ledger, f.cfg, log)
	f.sales = NewSaleService(ledger, f.cfg, log)
	f.installments = NewInstallmentService(ledger, f.cfg, log)
	f.roles = NewRoleService(ledger, log)
	f.collections = NewCollectionService(ledger, log)
	f.balances = NewBalanceService(ledger, log)

	var err error
	f.factory, err = f.factories.EnsureFactory(f.ctx, f.owner.addr, eth(t, "0.01"))
	if err != nil {
		t.Fatalf("EnsureFactory: %v", err)
	}
	if err := f.roles.Grant(f.ctx, f.factory.Address, f.owner.addr, rbac.DeveloperRole, f.dev.addr); err != nil {
		t.Fatalf("grant developer: %v", err)
	}
	f.instance = f.newInstance()
	return f
}

func (f *fixture) newInstance() *models.Instance {
	f.t.Helper()
	inst, err := f.factories.CreateInstance(f.ctx, f.dev.addr,
		CollectionParams{Name: "Land", Symbol: "LND", BaseURI: "ipfs://land/"},
		SaleParams{ExpirySeconds: testExpiry, AgentFeePercent: 10},
		eth(f.t, "0.01"))
	if err != nil {
		f.t.Fatalf("CreateInstance: %v", err)
	}
	return inst
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) sale() common.Address       { return f.instance.Sale.Address }
func (f *fixture) collection() common.Address { return f.instance.Collection.Address }

func (f *fixture) addListing(price string, landType, limit uint64) *models.Listing {
	f.t.Helper()
	l, err := f.sales.AddListing(f.ctx, f.sale(), f.dev.addr, eth(f.t, price), landType, limit)
	if err != nil {
		f.t.Fatalf("AddListing: %v", err)
	}
	return l
}

// voucherFor builds a buy request signed by signer for the given sale.
func (f *fixture) voucherFor(signer account, sale, buyer common.Address, assetID int64, metadataID uint64, plan bool, value string) BuyRequest {
	f.t.Helper()
	req := BuyRequest{
		Sale:                 sale,
		Caller:               buyer,
		AssetID:              big.NewInt(assetID),
		MetadataID:           metadataID,
		SignedAt:             f.now.Unix(),
		WantsInstallmentPlan: plan,
		Value:                eth(f.t, value),
	}
	f.sign(signer, &req)
	return req
}

func (f *fixture) sign(signer account, req *BuyRequest) {
	f.t.Helper()
	digest, err := voucher.LandSale{
		Wallet:            req.Caller,
		TokenID:           req.AssetID,
		MetadataID:        new(big.Int).SetUint64(req.MetadataID),
		Agent:             req.Agent,
		UpdateInstallment: req.WantsInstallmentPlan,
		SignatureTime:     big.NewInt(req.SignedAt),
	}.Digest(f.cfg.ChainID, req.Sale)
	if err != nil {
		f.t.Fatal(err)
	}
	req.Signature, err = voucher.Sign(digest, signer.key)
	if err != nil {
		f.t.Fatal(err)
	}
}

// setSchedule installs ten installments of 0.1 ether due every 10s.
func (f *fixture) setSchedule(landType uint64) {
	f.t.Helper()
	offsets := make([]uint64, 10)
	amounts := make([]*big.Int, 10)
	for i := range offsets {
		offsets[i] = uint64(10 * (i + 1))
		amounts[i] = eth(f.t, "0.1")
	}
	if _, err := f.installments.UpdateDefaultInstallmentsByType(f.ctx, f.collection(), f.dev.addr, eth(f.t, "1"), offsets, amounts, landType); err != nil {
		f.t.Fatalf("UpdateDefaultInstallmentsByType: %v", err)
	}
}

func (f *fixture) balance(scope, acct common.Address) *big.Int {
	f.t.Helper()
	b, err := f.balances.Balance(f.ctx, scope, acct)
	if err != nil {
		f.t.Fatal(err)
	}
	return b
}

func eth(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseEther(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
