package main

import (
	"context"
	"fmt"
	"time"

	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type overdueLister interface {
	Overdue(ctx context.Context) ([]services.OverdueInstallment, error)
}

type oncePublisher interface {
	PublishOnce(ctx context.Context, stream, key string, ttl time.Duration, event events.Event) (bool, error)
}

// overdueKey is claimed once per installment; without expiry.
func overdueKey(o services.OverdueInstallment) string {
	return fmt.Sprintf("overdue:%s:%s:%d", o.Collection.Hex(), o.TokenID, o.Quote.Index)
}

// runOverdueScan публикует installment_overdue один раз на каждый просроченный платёж.
func runOverdueScan(ctx context.Context, lister overdueLister, publisher oncePublisher, log *zap.Logger) int {
	overdue, err := lister.Overdue(ctx)
	if err != nil {
		log.Error("failed to list overdue installments", zap.Error(err))
		return 0
	}

	sent := 0
	for _, o := range overdue {
		event := events.Event{
			Type: events.EventInstallmentOverdue,
			Payload: map[string]any{
				"collection": o.Collection.Hex(),
				"token_id":   o.TokenID.String(),
				"index":      o.Quote.Index,
				"scheduled":  o.Quote.Scheduled,
				"required":   o.Quote.Required,
				"due_at":     o.Quote.DueAt,
			},
		}
		ok, err := publisher.PublishOnce(ctx, events.StreamLedger, overdueKey(o), 0, event)
		if err != nil {
			log.Error("failed to publish overdue installment",
				zap.String("collection", o.Collection.Hex()),
				zap.String("token_id", o.TokenID.String()),
				zap.Uint64("index", o.Quote.Index),
				zap.Error(err),
			)
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		log.Info("overdue installments notified", zap.Int("count", sent))
	}
	return sent
}
