package services

import (
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
)

func TestBuy(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 2)
	buyer, agent := newAccount(t), newAccount(t)

	req := f.voucherFor(f.dev, f.sale(), buyer.addr, 101, listing.ID, false, "1")
	req.Agent = agent.addr
	f.sign(f.dev, &req)

	purchase, err := f.sales.Buy(f.ctx, req)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if purchase.AssetID != "101" || purchase.Buyer != buyer.addr || purchase.Price != eth(t, "1").String() {
		t.Errorf("unexpected purchase: %+v", purchase)
	}

	owner, err := f.collections.OwnerOf(f.ctx, f.collection(), big.NewInt(101))
	if err != nil || owner != buyer.addr {
		t.Errorf("OwnerOf = %s, %v", owner.Hex(), err)
	}
	got, _ := f.sales.GetListing(f.ctx, f.sale(), listing.ID)
	if got.UnitsSold != 1 || got.Status() != models.ListingStatusActive {
		t.Errorf("listing after buy: %+v", got)
	}

	if b := f.balance(f.sale(), agent.addr); b.Cmp(eth(t, "0.1")) != 0 {
		t.Errorf("agent commission = %s", b)
	}
	if b := f.balance(f.sale(), f.dev.addr); b.Cmp(eth(t, "0.9")) != 0 {
		t.Errorf("sale owner proceeds = %s", b)
	}
	if n := f.pub.count(events.EventLandPurchased); n != 1 {
		t.Errorf("land_purchased events = %d", n)
	}

	paid, err := f.installments.IsFullyPaid(f.ctx, f.collection(), big.NewInt(101))
	if err != nil || !paid {
		t.Errorf("token without plan: IsFullyPaid = %v, %v", paid, err)
	}
}

func TestBuyLastUnitScenario(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 1)
	a, b := newAccount(t), newAccount(t)

	if _, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), a.addr, 1, listing.ID, false, "1")); err != nil {
		t.Fatalf("buyer A: %v", err)
	}
	published := f.pub.total()

	_, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), b.addr, 2, listing.ID, false, "1"))
	if !errors.Is(err, models.ErrLimitReached) {
		t.Fatalf("buyer B: err = %v, want ErrLimitReached", err)
	}

	got, _ := f.sales.GetListing(f.ctx, f.sale(), listing.ID)
	if got.UnitsSold != 1 || got.Status() != models.ListingStatusSoldOut {
		t.Errorf("listing = %+v", got)
	}
	if _, err := f.collections.GetToken(f.ctx, f.collection(), big.NewInt(2)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("token 2 minted despite failure: %v", err)
	}
	if f.pub.total() != published {
		t.Error("failed buy published events")
	}
}

func TestBuyExpiryWindow(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		wantErr error
	}{
		{"fresh", 0, nil},
		{"exactly at window", testExpiry * time.Second, nil},
		{"one second past window", (testExpiry + 1) * time.Second, models.ErrSignatureExpired},
		{"signed in the future", -time.Second, models.ErrSignatureExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			listing := f.addListing("1", 1, 1)
			req := f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, listing.ID, false, "1")
			f.advance(tt.age)

			_, err := f.sales.Buy(f.ctx, req)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuyRejectsNegativeSignedAt(t *testing.T) {
	for _, signedAt := range []int64{-1, math.MinInt64} {
		f := newFixture(t)
		listing := f.addListing("1", 1, 1)
		req := f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, listing.ID, false, "1")
		req.SignedAt = signedAt

		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrSignatureExpired) {
			t.Errorf("signedAt %d: err = %v, want ErrSignatureExpired", signedAt, err)
		}
	}
}

func TestVoucherBoundToSaleInstance(t *testing.T) {
	f := newFixture(t)
	other := f.newInstance()

	listing := f.addListing("1", 1, 5)
	if _, err := f.sales.AddListing(f.ctx, other.Sale.Address, f.dev.addr, eth(t, "1"), 1, 5); err != nil {
		t.Fatal(err)
	}
	buyer := newAccount(t)

	// signed for sale A, redeemed against sale B with identical fields
	req := f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "1")
	req.Sale = other.Sale.Address
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
		t.Fatalf("cross-instance voucher: err = %v, want ErrInvalidSignature", err)
	}

	req.Sale = f.sale()
	if _, err := f.sales.Buy(f.ctx, req); err != nil {
		t.Fatalf("voucher on its own sale: %v", err)
	}
}

func TestBuyRejectsBadSignatures(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 5)
	buyer, stranger := newAccount(t), newAccount(t)

	t.Run("signer without validator role", func(t *testing.T) {
		req := f.voucherFor(stranger, f.sale(), buyer.addr, 1, listing.ID, false, "1")
		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("redeemed by another caller", func(t *testing.T) {
		req := f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "1")
		req.Caller = stranger.addr
		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("plan flag flipped", func(t *testing.T) {
		req := f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "1")
		req.WantsInstallmentPlan = true
		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("truncated signature", func(t *testing.T) {
		req := f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "1")
		req.Signature = req.Signature[:64]
		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("validator revoked", func(t *testing.T) {
		validator := newAccount(t)
		if err := f.roles.Grant(f.ctx, f.sale(), f.dev.addr, rbac.ValidatorRole, validator.addr); err != nil {
			t.Fatal(err)
		}
		req := f.voucherFor(validator, f.sale(), buyer.addr, 9, listing.ID, false, "1")
		if err := f.roles.Revoke(f.ctx, f.sale(), f.dev.addr, rbac.ValidatorRole, validator.addr); err != nil {
			t.Fatal(err)
		}
		if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestBuyPayment(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		value   string
		wantErr error
	}{
		{"below price", false, "0.999999999999999999", models.ErrInsufficientPayment},
		{"exact price", false, "1", nil},
		{"overpay accepted", false, "1.5", nil},
		{"strict exact", true, "1", nil},
		{"strict overpay", true, "1.5", models.ErrInsufficientPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.StrictBuyPayment = tt.strict
			listing := f.addListing("1", 1, 1)

			_, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, listing.ID, false, tt.value))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBlacklistBlocksSignedVoucher(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 1)
	buyer := newAccount(t)
	req := f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "1")

	if err := f.sales.AddBlacklist(f.ctx, f.sale(), buyer.addr, buyer.addr); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("non-owner blacklist: err = %v", err)
	}
	if err := f.sales.AddBlacklist(f.ctx, f.sale(), f.dev.addr, buyer.addr); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrBlacklisted) {
		t.Fatalf("blacklisted buy: err = %v", err)
	}

	if err := f.sales.RemoveBlacklist(f.ctx, f.sale(), f.dev.addr, buyer.addr); err != nil {
		t.Fatal(err)
	}
	if listed, _ := f.sales.IsBlacklisted(f.ctx, f.sale(), buyer.addr); listed {
		t.Fatal("still blacklisted")
	}
	if _, err := f.sales.Buy(f.ctx, req); err != nil {
		t.Fatalf("buy after removal: %v", err)
	}
}

func TestBuyChecksRunInOrder(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 1)
	buyer := newAccount(t)
	_ = f.sales.AddBlacklist(f.ctx, f.sale(), f.dev.addr, buyer.addr)

	// expired, badly signed, blacklisted and underpaid: expiry wins
	req := f.voucherFor(newAccount(t), f.sale(), buyer.addr, 1, listing.ID, false, "0.5")
	f.advance(2 * testExpiry * time.Second)
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrSignatureExpired) {
		t.Fatalf("err = %v, want ErrSignatureExpired", err)
	}

	// fresh but badly signed: signature before blacklist
	req = f.voucherFor(newAccount(t), f.sale(), buyer.addr, 1, listing.ID, false, "0.5")
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	// valid signature: blacklist before payment
	req = f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, false, "0.5")
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrBlacklisted) {
		t.Fatalf("err = %v, want ErrBlacklisted", err)
	}

	// unknown listing
	req = f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, 99, false, "1")
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBuyFailureIsAtomic(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 7, 3)
	buyer := newAccount(t)
	published := f.pub.total()

	// land type 7 has no default schedule
	_, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), buyer.addr, 1, listing.ID, true, "1"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	got, _ := f.sales.GetListing(f.ctx, f.sale(), listing.ID)
	if got.UnitsSold != 0 {
		t.Errorf("unitsSold = %d after failed buy", got.UnitsSold)
	}
	if _, err := f.collections.GetToken(f.ctx, f.collection(), big.NewInt(1)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("token minted after failed buy: %v", err)
	}
	if b := f.balance(f.sale(), f.dev.addr); b.Sign() != 0 {
		t.Errorf("owner credited %s after failed buy", b)
	}
	if f.pub.total() != published {
		t.Error("failed buy published events")
	}
}

func TestBuyExistingAssetID(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 5)

	if _, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 5, listing.ID, false, "1")); err != nil {
		t.Fatal(err)
	}
	_, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 5, listing.ID, false, "1"))
	if !errors.Is(err, models.ErrTokenExists) {
		t.Fatalf("err = %v, want ErrTokenExists", err)
	}
	got, _ := f.sales.GetListing(f.ctx, f.sale(), listing.ID)
	if got.UnitsSold != 1 {
		t.Errorf("unitsSold = %d", got.UnitsSold)
	}
}

func TestConcurrentBuysNeverExceedLimit(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 5)

	reqs := make([]BuyRequest, 20)
	for i := range reqs {
		reqs[i] = f.voucherFor(f.dev, f.sale(), newAccount(t).addr, int64(i+1), listing.ID, false, "1")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, limited int
	for _, req := range reqs {
		wg.Add(1)
		go func(req BuyRequest) {
			defer wg.Done()
			_, err := f.sales.Buy(f.ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrLimitReached):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(req)
	}
	wg.Wait()

	if ok != 5 || limited != 15 {
		t.Fatalf("ok = %d, limited = %d", ok, limited)
	}
	got, _ := f.sales.GetListing(f.ctx, f.sale(), listing.ID)
	if got.UnitsSold != got.UnitLimit {
		t.Errorf("listing = %+v", got)
	}
}

func TestListingAdministration(t *testing.T) {
	f := newFixture(t)
	stranger := newAccount(t)

	first := f.addListing("1", 1, 1)
	second := f.addListing("2", 2, 3)
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", first.ID, second.ID)
	}

	if _, err := f.sales.AddListing(f.ctx, f.sale(), stranger.addr, eth(t, "1"), 1, 1); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("stranger AddListing: err = %v", err)
	}
	if _, err := f.sales.UpdatePrice(f.ctx, f.sale(), stranger.addr, first.ID, eth(t, "3")); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("stranger UpdatePrice: err = %v", err)
	}
	if _, err := f.sales.UpdatePrice(f.ctx, f.sale(), f.dev.addr, 42, eth(t, "3")); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown listing: err = %v", err)
	}
	if _, err := f.sales.GetListing(f.ctx, f.sale(), 42); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetListing unknown: err = %v", err)
	}

	updated, err := f.sales.UpdatePrice(f.ctx, f.sale(), f.dev.addr, first.ID, eth(t, "3"))
	if err != nil || updated.Price.Cmp(eth(t, "3")) != 0 {
		t.Fatalf("UpdatePrice = %+v, %v", updated, err)
	}

	// sell out the first listing, then reopen it
	if _, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, first.ID, false, "3")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sales.UpdateUnitLimit(f.ctx, f.sale(), f.dev.addr, first.ID, 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("limit below sold: err = %v", err)
	}
	reopened, err := f.sales.UpdateUnitLimit(f.ctx, f.sale(), f.dev.addr, first.ID, 2)
	if err != nil || reopened.Status() != models.ListingStatusActive {
		t.Fatalf("reopen = %+v, %v", reopened, err)
	}

	all, err := f.sales.ListListings(f.ctx, f.sale())
	if err != nil || len(all) != 2 {
		t.Fatalf("ListListings = %d, %v", len(all), err)
	}
}

func TestUpdateExpiry(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 1)
	req := f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, listing.ID, false, "1")
	f.advance(2 * testExpiry * time.Second)

	if err := f.sales.UpdateExpiry(f.ctx, f.sale(), f.dev.addr, 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("zero expiry: err = %v", err)
	}
	if err := f.sales.UpdateExpiry(f.ctx, f.sale(), f.dev.addr, 3*testExpiry); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sales.Buy(f.ctx, req); err != nil {
		t.Fatalf("buy inside extended window: %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	listing := f.addListing("1", 1, 1)
	if _, err := f.sales.Buy(f.ctx, f.voucherFor(f.dev, f.sale(), newAccount(t).addr, 1, listing.ID, false, "1")); err != nil {
		t.Fatal(err)
	}

	amount, err := f.balances.Withdraw(f.ctx, f.sale(), f.dev.addr)
	if err != nil || amount.Cmp(eth(t, "1")) != 0 {
		t.Fatalf("Withdraw = %v, %v", amount, err)
	}
	if b := f.balance(f.sale(), f.dev.addr); b.Sign() != 0 {
		t.Errorf("balance after withdraw = %s", b)
	}
	if _, err := f.balances.Withdraw(f.ctx, f.sale(), f.dev.addr); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("second withdraw: err = %v", err)
	}
	if f.pub.count(events.EventWithdrawn) != 1 {
		t.Error("missing withdrawn event")
	}
}

func TestBuyUnknownSale(t *testing.T) {
	f := newFixture(t)
	req := f.voucherFor(f.dev, common.Address{9}, newAccount(t).addr, 1, 1, false, "1")
	if _, err := f.sales.Buy(f.ctx, req); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
