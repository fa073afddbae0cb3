package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/installments"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"github.com/landsale/backend/internal/voucher"
	"go.uber.org/zap"
)

// SaleService runs developer sales: the listing registry, voucher redemption
// and the per-sale blacklist.
type SaleService struct {
	ledger *Ledger
	cfg    *config.Config
	log    *zap.Logger
}

func NewSaleService(ledger *Ledger, cfg *config.Config, log *zap.Logger) *SaleService {
	return &SaleService{ledger: ledger, cfg: cfg, log: log}
}

// BuyRequest is a voucher redemption. Caller is the recipient the voucher
// was signed for.
type BuyRequest struct {
	Sale                 common.Address
	Caller               common.Address
	AssetID              *big.Int
	MetadataID           uint64
	SignedAt             int64 // unix seconds
	Agent                common.Address
	WantsInstallmentPlan bool
	Signature            []byte
	Value                *big.Int
}

// Buy redeems a validator-signed voucher. Checks run in a fixed order and the
// first failure aborts the whole purchase.
func (s *SaleService) Buy(ctx context.Context, req BuyRequest) (*models.Purchase, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	if req.AssetID == nil || req.AssetID.Sign() < 0 {
		return nil, fmt.Errorf("%w: asset id", models.ErrInvalidArgument)
	}

	var purchase *models.Purchase
	err := s.ledger.exec(ctx, func(o *op) error {
		sale, err := o.tx.GetSale(ctx, req.Sale)
		if err != nil {
			return err
		}

		// 1. Окно действия подписи
		if req.SignedAt < 0 || req.SignedAt > o.now.Unix() || o.now.Unix()-req.SignedAt > sale.ExpirySeconds {
			return fmt.Errorf("%w: signed at %d, now %d, window %ds", models.ErrSignatureExpired, req.SignedAt, o.now.Unix(), sale.ExpirySeconds)
		}

		// 2. Подпись валидатора этой продажи
		digest, err := voucher.LandSale{
			Wallet:            req.Caller,
			TokenID:           req.AssetID,
			MetadataID:        new(big.Int).SetUint64(req.MetadataID),
			Agent:             req.Agent,
			UpdateInstallment: req.WantsInstallmentPlan,
			SignatureTime:     big.NewInt(req.SignedAt),
		}.Digest(s.cfg.ChainID, sale.Address)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
		}
		signer, err := voucher.RecoverSigner(digest, req.Signature)
		if err != nil {
			return err
		}
		isValidator, err := o.tx.HasRole(ctx, sale.Address, rbac.ValidatorRole, signer)
		if err != nil {
			return err
		}
		if !isValidator {
			return fmt.Errorf("%w: signer %s is not a validator", models.ErrInvalidSignature, signer.Hex())
		}

		// 3. Blacklist
		blocked, err := o.tx.IsBlacklisted(ctx, sale.Address, req.Caller)
		if err != nil {
			return err
		}
		if blocked {
			return fmt.Errorf("%w: %s", models.ErrBlacklisted, req.Caller.Hex())
		}

		// 4. Листинг и цена
		listing, err := o.tx.GetListing(ctx, sale.Address, req.MetadataID)
		if err != nil {
			return err
		}
		if cmp := value.Cmp(listing.Price); cmp < 0 || (s.cfg.StrictBuyPayment && cmp != 0) {
			return fmt.Errorf("%w: paid %s, price %s", models.ErrInsufficientPayment, value, listing.Price)
		}

		// 5. recordSale
		if err := listing.RecordSale(); err != nil {
			return fmt.Errorf("listing %d: %w", listing.ID, err)
		}
		if err := o.tx.PutListing(ctx, listing); err != nil {
			return err
		}

		// 6. Mint
		if _, err := mintToken(ctx, o, MintRequest{
			Collection: sale.Collection,
			Minter:     sale.Address,
			To:         req.Caller,
			TokenID:    req.AssetID,
			LandType:   listing.LandType,
			MetadataID: listing.ID,
		}); err != nil {
			return err
		}

		// 7. Снимок графика рассрочки
		if req.WantsInstallmentPlan {
			schedule, err := o.tx.GetDefaultSchedule(ctx, sale.Collection, listing.LandType)
			if err != nil {
				return err
			}
			if err := o.tx.PutPlan(ctx, installments.Snapshot(schedule, req.AssetID, o.now)); err != nil {
				return err
			}
		}

		// 8. Расчёт: комиссия агента, остаток владельцу продажи
		commission := new(big.Int)
		if req.Agent != (common.Address{}) && sale.AgentFeePercent > 0 {
			commission.Mul(value, new(big.Int).SetUint64(sale.AgentFeePercent))
			commission.Quo(commission, big.NewInt(100))
			if err := o.tx.AddBalance(ctx, sale.Address, req.Agent, commission); err != nil {
				return err
			}
		}
		if err := o.tx.AddBalance(ctx, sale.Address, sale.Owner, new(big.Int).Sub(value, commission)); err != nil {
			return err
		}

		purchase = &models.Purchase{
			Sale:            sale.Address,
			Collection:      sale.Collection,
			AssetID:         req.AssetID.String(),
			MetadataID:      listing.ID,
			Price:           listing.Price.String(),
			Paid:            value.String(),
			Buyer:           req.Caller,
			Agent:           req.Agent,
			InstallmentPlan: req.WantsInstallmentPlan,
			PurchasedAt:     o.now,
		}

		if err := o.audit(ctx, req.Caller, "land_purchased", "sale", sale.Address.Hex(), map[string]any{
			"asset_id":    purchase.AssetID,
			"metadata_id": listing.ID,
			"paid":        purchase.Paid,
			"agent":       req.Agent.Hex(),
			"commission":  commission.String(),
			"signer":      signer.Hex(),
		}); err != nil {
			return err
		}

		// 9. Событие
		o.emit(events.EventLandPurchased, map[string]any{
			"sale":             sale.Address.Hex(),
			"collection":       sale.Collection.Hex(),
			"asset_id":         purchase.AssetID,
			"metadata_id":      listing.ID,
			"price":            purchase.Price,
			"buyer":            req.Caller.Hex(),
			"installment_plan": req.WantsInstallmentPlan,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("land purchased",
		zap.String("sale", purchase.Sale.Hex()),
		zap.String("asset_id", purchase.AssetID),
		zap.String("buyer", purchase.Buyer.Hex()),
	)
	return purchase, nil
}

// --- Listing registry ---

// ownedSale loads a sale and checks that caller is its owner.
func ownedSale(ctx context.Context, o *op, addr, caller common.Address) (*models.Sale, error) {
	sale, err := o.tx.GetSale(ctx, addr)
	if err != nil {
		return nil, err
	}
	if sale.Owner != caller {
		return nil, fmt.Errorf("%w: %s is not the owner of sale %s", models.ErrUnauthorized, caller.Hex(), addr.Hex())
	}
	return sale, nil
}

// AddListing registers a new land type for sale and returns it with its
// sequential metadata id.
func (s *SaleService) AddListing(ctx context.Context, saleAddr, caller common.Address, price *big.Int, landType, unitLimit uint64) (*models.Listing, error) {
	if price == nil || price.Sign() < 0 {
		return nil, fmt.Errorf("%w: price", models.ErrInvalidArgument)
	}
	if unitLimit == 0 {
		return nil, fmt.Errorf("%w: unit limit must be positive", models.ErrInvalidArgument)
	}

	var listing *models.Listing
	err := s.ledger.exec(ctx, func(o *op) error {
		sale, err := ownedSale(ctx, o, saleAddr, caller)
		if err != nil {
			return err
		}

		listing = &models.Listing{
			Sale:      sale.Address,
			ID:        sale.NextListingID,
			Price:     new(big.Int).Set(price),
			LandType:  landType,
			UnitLimit: unitLimit,
		}
		sale.NextListingID++
		if err := o.tx.PutSale(ctx, sale); err != nil {
			return err
		}
		if err := o.tx.PutListing(ctx, listing); err != nil {
			return err
		}

		if err := o.audit(ctx, caller, "listing_added", "sale", sale.Address.Hex(), map[string]any{
			"metadata_id": listing.ID,
			"price":       price.String(),
			"land_type":   landType,
			"unit_limit":  unitLimit,
		}); err != nil {
			return err
		}
		o.emit(events.EventListingAdded, listingPayload(listing))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *SaleService) UpdatePrice(ctx context.Context, saleAddr, caller common.Address, metadataID uint64, price *big.Int) (*models.Listing, error) {
	if price == nil || price.Sign() < 0 {
		return nil, fmt.Errorf("%w: price", models.ErrInvalidArgument)
	}
	return s.updateListing(ctx, saleAddr, caller, metadataID, "listing_price_updated", func(l *models.Listing) error {
		l.Price = new(big.Int).Set(price)
		return nil
	})
}

// UpdateUnitLimit changes the cap of a listing. Raising it reopens a sold-out listing.
func (s *SaleService) UpdateUnitLimit(ctx context.Context, saleAddr, caller common.Address, metadataID, limit uint64) (*models.Listing, error) {
	return s.updateListing(ctx, saleAddr, caller, metadataID, "listing_limit_updated", func(l *models.Listing) error {
		if limit < l.UnitsSold {
			return fmt.Errorf("%w: limit %d below units sold %d", models.ErrInvalidArgument, limit, l.UnitsSold)
		}
		l.UnitLimit = limit
		return nil
	})
}

func (s *SaleService) updateListing(ctx context.Context, saleAddr, caller common.Address, metadataID uint64, action string, change func(l *models.Listing) error) (*models.Listing, error) {
	var listing *models.Listing
	err := s.ledger.exec(ctx, func(o *op) error {
		sale, err := ownedSale(ctx, o, saleAddr, caller)
		if err != nil {
			return err
		}
		listing, err = o.tx.GetListing(ctx, sale.Address, metadataID)
		if err != nil {
			return err
		}
		if err := change(listing); err != nil {
			return err
		}
		if err := o.tx.PutListing(ctx, listing); err != nil {
			return err
		}

		if err := o.audit(ctx, caller, action, "sale", sale.Address.Hex(), map[string]any{
			"metadata_id": metadataID,
			"price":       listing.Price.String(),
			"unit_limit":  listing.UnitLimit,
		}); err != nil {
			return err
		}
		o.emit(events.EventListingUpdated, listingPayload(listing))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *SaleService) GetListing(ctx context.Context, saleAddr common.Address, metadataID uint64) (*models.Listing, error) {
	var l *models.Listing
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		l, err = tx.GetListing(ctx, saleAddr, metadataID)
		return err
	})
	return l, err
}

func (s *SaleService) ListListings(ctx context.Context, saleAddr common.Address) ([]*models.Listing, error) {
	var out []*models.Listing
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetSale(ctx, saleAddr); err != nil {
			return err
		}
		var err error
		out, err = tx.ListListings(ctx, saleAddr)
		return err
	})
	return out, err
}

func listingPayload(l *models.Listing) map[string]any {
	return map[string]any{
		"sale":        l.Sale.Hex(),
		"metadata_id": l.ID,
		"price":       l.Price.String(),
		"land_type":   l.LandType,
		"unit_limit":  l.UnitLimit,
		"units_sold":  l.UnitsSold,
		"status":      l.Status(),
	}
}

// --- Sale administration ---

func (s *SaleService) GetSale(ctx context.Context, saleAddr common.Address) (*models.Sale, error) {
	var sale *models.Sale
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		sale, err = tx.GetSale(ctx, saleAddr)
		return err
	})
	return sale, err
}

func (s *SaleService) AddBlacklist(ctx context.Context, saleAddr, caller, account common.Address) error {
	return s.setBlacklisted(ctx, saleAddr, caller, account, true)
}

func (s *SaleService) RemoveBlacklist(ctx context.Context, saleAddr, caller, account common.Address) error {
	return s.setBlacklisted(ctx, saleAddr, caller, account, false)
}

func (s *SaleService) setBlacklisted(ctx context.Context, saleAddr, caller, account common.Address, listed bool) error {
	return s.ledger.exec(ctx, func(o *op) error {
		sale, err := ownedSale(ctx, o, saleAddr, caller)
		if err != nil {
			return err
		}
		if err := o.tx.SetBlacklisted(ctx, sale.Address, account, listed); err != nil {
			return err
		}
		if err := o.audit(ctx, caller, "blacklist_updated", "sale", sale.Address.Hex(), map[string]any{
			"account":     account.Hex(),
			"blacklisted": listed,
		}); err != nil {
			return err
		}
		o.emit(events.EventBlacklistUpdated, map[string]any{
			"sale":        sale.Address.Hex(),
			"account":     account.Hex(),
			"blacklisted": listed,
		})
		return nil
	})
}

func (s *SaleService) IsBlacklisted(ctx context.Context, saleAddr, account common.Address) (bool, error) {
	var listed bool
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetSale(ctx, saleAddr); err != nil {
			return err
		}
		var err error
		listed, err = tx.IsBlacklisted(ctx, saleAddr, account)
		return err
	})
	return listed, err
}

// UpdateExpiry changes how long a voucher stays redeemable after signing.
func (s *SaleService) UpdateExpiry(ctx context.Context, saleAddr, caller common.Address, seconds int64) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: expiry must be positive", models.ErrInvalidArgument)
	}
	return s.ledger.exec(ctx, func(o *op) error {
		sale, err := ownedSale(ctx, o, saleAddr, caller)
		if err != nil {
			return err
		}
		old := sale.ExpirySeconds
		sale.ExpirySeconds = seconds
		if err := o.tx.PutSale(ctx, sale); err != nil {
			return err
		}
		if err := o.audit(ctx, caller, "expiry_updated", "sale", sale.Address.Hex(), map[string]any{
			"old": old,
			"new": seconds,
		}); err != nil {
			return err
		}
		o.emit(events.EventExpiryUpdated, map[string]any{
			"sale":           sale.Address.Hex(),
			"expiry_seconds": seconds,
		})
		return nil
	})
}
