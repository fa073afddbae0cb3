package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StreamLedger carries every committed ledger change.
const StreamLedger = "events:ledger"

// Event types
const (
	EventLandPurchased            = "land_purchased"
	EventInstallmentPaid          = "installment_paid"
	EventInstallmentPlanCompleted = "installment_plan_completed"
	EventInstallmentOverdue       = "installment_overdue"
	EventScheduleUpdated          = "installment_schedule_updated"
	EventListingAdded             = "listing_added"
	EventListingUpdated           = "listing_updated"
	EventBlacklistUpdated         = "blacklist_updated"
	EventExpiryUpdated            = "expiry_updated"
	EventRoleGranted              = "role_granted"
	EventRoleRevoked              = "role_revoked"
	EventCollectionCreated        = "collection_created"
	EventSaleCreated              = "sale_created"
	EventFactoryFeeUpdated        = "factory_fee_updated"
	EventWithdrawn                = "withdrawn"
	EventTokenMinted              = "token_minted"
)

// Event is one ledger change. ID and PublishedAt are set by the publisher;
// consumers use ID to drop redeliveries.
type Event struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	PublishedAt time.Time      `json:"published_at,omitempty"`
}

// stamp fills the publisher fields that are still empty.
func stamp(e Event, now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.PublishedAt.IsZero() {
		e.PublishedAt = now.UTC()
	}
	return e
}

// Decode parses a message published by RedisPublisher.
func Decode(raw string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
