package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id"`
	Actor      *common.Address `json:"actor,omitempty"`
	ActorType  string          `json:"actor_type"` // wallet/system
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityRef  string          `json:"entity_ref"`
	Meta       map[string]any  `json:"meta,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
