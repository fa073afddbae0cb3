package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// FactoryService creates isolated collection and sale instances for
// developers against a fee.
type FactoryService struct {
	ledger *Ledger
	cfg    *config.Config
	log    *zap.Logger
}

func NewFactoryService(ledger *Ledger, cfg *config.Config, log *zap.Logger) *FactoryService {
	return &FactoryService{ledger: ledger, cfg: cfg, log: log}
}

// EnsureFactory creates the factory on first start. An existing factory is
// returned unchanged.
func (s *FactoryService) EnsureFactory(ctx context.Context, owner common.Address, fee *big.Int) (*models.Factory, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: factory owner", models.ErrInvalidArgument)
	}
	if fee == nil || fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: factory fee", models.ErrInvalidArgument)
	}

	var f *models.Factory
	err := s.ledger.exec(ctx, func(o *op) error {
		existing, err := o.tx.GetFactory(ctx)
		if err == nil {
			f = existing
			return nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		f = &models.Factory{
			Address: crypto.CreateAddress(owner, 0),
			Owner:   owner,
			Fee:     new(big.Int).Set(fee),
		}
		if err := o.tx.PutFactory(ctx, f); err != nil {
			return err
		}
		return o.setRole(ctx, owner, f.Address, rbac.DefaultAdminRole, owner, true)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FactoryService) GetFactory(ctx context.Context) (*models.Factory, error) {
	var f *models.Factory
	err := s.ledger.read(ctx, func(tx store.Tx) error {
		var err error
		f, err = tx.GetFactory(ctx)
		return err
	})
	return f, err
}

func (s *FactoryService) UpdateFee(ctx context.Context, caller common.Address, fee *big.Int) error {
	if fee == nil || fee.Sign() < 0 {
		return fmt.Errorf("%w: fee", models.ErrInvalidArgument)
	}
	return s.ledger.exec(ctx, func(o *op) error {
		f, err := o.tx.GetFactory(ctx)
		if err != nil {
			return err
		}
		if err := o.requireRole(ctx, f.Address, rbac.DefaultAdminRole, caller); err != nil {
			return err
		}
		old := f.Fee
		f.Fee = new(big.Int).Set(fee)
		if err := o.tx.PutFactory(ctx, f); err != nil {
			return err
		}
		if err := o.audit(ctx, caller, "factory_fee_updated", "factory", f.Address.Hex(), map[string]any{
			"old": old.String(),
			"new": fee.String(),
		}); err != nil {
			return err
		}
		o.emit(events.EventFactoryFeeUpdated, map[string]any{"fee": fee.String()})
		return nil
	})
}

type CollectionParams struct {
	Name    string
	Symbol  string
	BaseURI string
}

type SaleParams struct {
	ExpirySeconds   int64  // 0 = default from config
	AgentFeePercent uint64 // commission credited to the voucher agent
}

func (s *FactoryService) CreateCollection(ctx context.Context, caller common.Address, params CollectionParams, value *big.Int) (*models.Collection, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var c *models.Collection
	err := s.ledger.exec(ctx, func(o *op) error {
		f, err := s.charge(ctx, o, caller, value)
		if err != nil {
			return err
		}
		c, err = s.createCollection(ctx, o, f, caller, params)
		if err != nil {
			return err
		}
		return o.tx.PutFactory(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateSale attaches a new sale to a collection the caller administers.
func (s *FactoryService) CreateSale(ctx context.Context, caller, collection common.Address, params SaleParams, value *big.Int) (*models.Sale, error) {
	params = s.withDefaults(params)
	if err := params.validate(); err != nil {
		return nil, err
	}

	var sale *models.Sale
	err := s.ledger.exec(ctx, func(o *op) error {
		f, err := s.charge(ctx, o, caller, value)
		if err != nil {
			return err
		}
		c, err := o.tx.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		if err := o.requireRole(ctx, c.Address, rbac.DefaultAdminRole, caller); err != nil {
			return err
		}
		sale, err = s.createSale(ctx, o, f, caller, c, params)
		if err != nil {
			return err
		}
		return o.tx.PutFactory(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CreateInstance creates a collection and its sale for one fee.
func (s *FactoryService) CreateInstance(ctx context.Context, caller common.Address, cp CollectionParams, sp SaleParams, value *big.Int) (*models.Instance, error) {
	if err := cp.validate(); err != nil {
		return nil, err
	}
	sp = s.withDefaults(sp)
	if err := sp.validate(); err != nil {
		return nil, err
	}

	var inst *models.Instance
	err := s.ledger.exec(ctx, func(o *op) error {
		f, err := s.charge(ctx, o, caller, value)
		if err != nil {
			return err
		}
		c, err := s.createCollection(ctx, o, f, caller, cp)
		if err != nil {
			return err
		}
		sale, err := s.createSale(ctx, o, f, caller, c, sp)
		if err != nil {
			return err
		}
		inst = &models.Instance{Collection: c, Sale: sale}
		return o.tx.PutFactory(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("instance created",
		zap.String("collection", inst.Collection.Address.Hex()),
		zap.String("sale", inst.Sale.Address.Hex()),
		zap.String("owner", caller.Hex()),
	)
	return inst, nil
}

// charge проверяет роль DEVELOPER и оплату: комиссия владельцу фабрики,
// излишек возвращается на баланс вызывающего.
func (s *FactoryService) charge(ctx context.Context, o *op, caller common.Address, value *big.Int) (*models.Factory, error) {
	if value == nil {
		value = new(big.Int)
	}
	f, err := o.tx.GetFactory(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.requireRole(ctx, f.Address, rbac.DeveloperRole, caller); err != nil {
		return nil, err
	}
	if value.Cmp(f.Fee) < 0 {
		return nil, fmt.Errorf("%w: paid %s, fee %s", models.ErrInsufficientPayment, value, f.Fee)
	}

	if f.Fee.Sign() > 0 {
		if err := o.tx.AddBalance(ctx, f.Address, f.Owner, f.Fee); err != nil {
			return nil, err
		}
	}
	if excess := new(big.Int).Sub(value, f.Fee); excess.Sign() > 0 {
		if err := o.tx.AddBalance(ctx, f.Address, caller, excess); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// nextAddress derives the next instance address from the factory nonce.
func nextAddress(f *models.Factory) common.Address {
	addr := crypto.CreateAddress(f.Address, f.Nonce)
	f.Nonce++
	return addr
}

func (s *FactoryService) createCollection(ctx context.Context, o *op, f *models.Factory, caller common.Address, params CollectionParams) (*models.Collection, error) {
	c := &models.Collection{
		Address:   nextAddress(f),
		Name:      params.Name,
		Symbol:    params.Symbol,
		BaseURI:   params.BaseURI,
		Owner:     caller,
		CreatedAt: o.now,
	}
	if err := o.tx.PutCollection(ctx, c); err != nil {
		return nil, err
	}
	for _, role := range []common.Hash{rbac.DefaultAdminRole, rbac.DeveloperRole} {
		if err := o.setRole(ctx, caller, c.Address, role, caller, true); err != nil {
			return nil, err
		}
	}

	if err := o.audit(ctx, caller, "collection_created", "collection", c.Address.Hex(), map[string]any{
		"name":   c.Name,
		"symbol": c.Symbol,
	}); err != nil {
		return nil, err
	}
	o.emit(events.EventCollectionCreated, map[string]any{
		"collection": c.Address.Hex(),
		"owner":      caller.Hex(),
		"name":       c.Name,
		"symbol":     c.Symbol,
	})
	return c, nil
}

func (s *FactoryService) createSale(ctx context.Context, o *op, f *models.Factory, caller common.Address, c *models.Collection, params SaleParams) (*models.Sale, error) {
	sale := &models.Sale{
		Address:         nextAddress(f),
		Collection:      c.Address,
		Owner:           caller,
		ExpirySeconds:   params.ExpirySeconds,
		AgentFeePercent: params.AgentFeePercent,
		NextListingID:   1,
		CreatedAt:       o.now,
	}
	if err := o.tx.PutSale(ctx, sale); err != nil {
		return nil, err
	}
	for _, role := range []common.Hash{rbac.DefaultAdminRole, rbac.ValidatorRole} {
		if err := o.setRole(ctx, caller, sale.Address, role, caller, true); err != nil {
			return nil, err
		}
	}
	// продажа минтит токены коллекции
	if err := o.setRole(ctx, caller, c.Address, rbac.MinterRole, sale.Address, true); err != nil {
		return nil, err
	}

	if err := o.audit(ctx, caller, "sale_created", "sale", sale.Address.Hex(), map[string]any{
		"collection":        c.Address.Hex(),
		"expiry_seconds":    sale.ExpirySeconds,
		"agent_fee_percent": sale.AgentFeePercent,
	}); err != nil {
		return nil, err
	}
	o.emit(events.EventSaleCreated, map[string]any{
		"sale":       sale.Address.Hex(),
		"collection": c.Address.Hex(),
		"owner":      caller.Hex(),
	})
	return sale, nil
}

func (s *FactoryService) withDefaults(p SaleParams) SaleParams {
	if p.ExpirySeconds == 0 {
		p.ExpirySeconds = int64(s.cfg.DefaultExpiry.Seconds())
	}
	return p
}

func (p CollectionParams) validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("%w: collection name and symbol are required", models.ErrInvalidArgument)
	}
	return nil
}

func (p SaleParams) validate() error {
	if p.ExpirySeconds <= 0 {
		return fmt.Errorf("%w: expiry must be positive", models.ErrInvalidArgument)
	}
	if p.AgentFeePercent > 100 {
		return fmt.Errorf("%w: agent fee above 100%%", models.ErrInvalidArgument)
	}
	return nil
}
