package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/db"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/notify"
	"go.uber.org/zap"
)

// Notify Bridge subscribes to ledger events and forwards each one to
// NOTIFY_WEBHOOK_URL. Withdrawn events are the payout trigger.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	webhook := notify.NewWebhookClient(cfg.NotifyWebhookURL, log)

	// события обрабатываются по одному, чтобы сохранить порядок
	queue := make(chan events.Event, 256)
	go func() {
		for event := range queue {
			if err := webhook.Forward(ctx, event, 3, time.Second); err != nil {
				log.Error("dropping event after retries", zap.String("type", event.Type), zap.String("id", event.ID), zap.Error(err))
			}
		}
	}()

	if err := subscriber.Subscribe(ctx, events.StreamLedger, func(event events.Event) {
		log.Info("forwarding event", zap.String("type", event.Type), zap.String("id", event.ID))
		queue <- event
	}); err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started", zap.String("stream", events.StreamLedger))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
