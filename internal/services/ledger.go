package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
	"github.com/landsale/backend/internal/store"
	"go.uber.org/zap"
)

// Ledger is shared by every service: one store, one publisher, one clock.
type Ledger struct {
	store     store.Store
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewLedger(st store.Store, publisher events.Publisher, log *zap.Logger) *Ledger {
	return &Ledger{store: st, publisher: publisher, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// op is the state of one ledger call: the clock reading taken at its start and
// the events to publish once it commits.
type op struct {
	tx     store.Tx
	now    time.Time
	events []events.Event
}

func (o *op) emit(eventType string, payload map[string]any) {
	o.events = append(o.events, events.Event{Type: eventType, Payload: payload})
}

// audit пишет запись в той же транзакции, что и изменение.
func (o *op) audit(ctx context.Context, actor common.Address, action, entityType, entityRef string, meta map[string]any) error {
	a := actor
	return o.tx.AppendAudit(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      &a,
		ActorType:  "wallet",
		Action:     action,
		EntityType: entityType,
		EntityRef:  entityRef,
		Meta:       meta,
		CreatedAt:  o.now,
	})
}

func (o *op) requireRole(ctx context.Context, scope common.Address, role common.Hash, account common.Address) error {
	ok, err := o.tx.HasRole(ctx, scope, role, account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks %s on %s", models.ErrUnauthorized, account.Hex(), rbac.Name(role), scope.Hex())
	}
	return nil
}

// setRole changes a grant and records it. No authorization check.
func (o *op) setRole(ctx context.Context, actor, scope common.Address, role common.Hash, account common.Address, granted bool) error {
	changed, err := o.tx.SetRole(ctx, scope, role, account, granted)
	if err != nil || !changed {
		return err
	}

	action, eventType := "role_granted", events.EventRoleGranted
	if !granted {
		action, eventType = "role_revoked", events.EventRoleRevoked
	}
	if err := o.audit(ctx, actor, action, "role", scope.Hex(), map[string]any{
		"role":    rbac.Name(role),
		"account": account.Hex(),
	}); err != nil {
		return err
	}
	o.emit(eventType, map[string]any{
		"scope":   scope.Hex(),
		"role":    role.Hex(),
		"account": account.Hex(),
		"sender":  actor.Hex(),
	})
	return nil
}

// exec runs fn in one store transaction and publishes its events after commit.
// A failed call publishes nothing.
func (l *Ledger) exec(ctx context.Context, fn func(o *op) error) error {
	var done *op
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		o := &op{tx: tx, now: l.now()}
		if err := fn(o); err != nil {
			return err
		}
		done = o
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range done.events {
		if err := l.publisher.Publish(ctx, events.StreamLedger, e); err != nil {
			l.log.Warn("failed to publish ledger event", zap.String("type", e.Type), zap.Error(err))
		}
	}
	return nil
}

// read runs fn in a transaction that writes nothing.
func (l *Ledger) read(ctx context.Context, fn func(tx store.Tx) error) error {
	return l.store.WithinTx(ctx, fn)
}
