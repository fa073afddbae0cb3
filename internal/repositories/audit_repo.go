package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/landsale/backend/internal/models"
)

type AuditRepo struct {
	db DBTX
}

func NewAuditRepo(db DBTX) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	var actor *string
	if entry.Actor != nil {
		s := entry.Actor.Hex()
		actor = &s
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (id, actor, actor_type, action, entity_type, entity_ref, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, actor, entry.ActorType, entry.Action, entry.EntityType, entry.EntityRef, entry.Meta, entry.CreatedAt)
	return err
}

func (r *AuditRepo) GetByEntity(ctx context.Context, entityType, entityRef string, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, actor, actor_type, action, entity_type, entity_ref, meta, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_ref = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, entityType, entityRef, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var actor *string
		if err := rows.Scan(&l.ID, &actor, &l.ActorType, &l.Action, &l.EntityType, &l.EntityRef, &l.Meta, &l.CreatedAt); err != nil {
			return nil, err
		}
		if actor != nil {
			a := common.HexToAddress(*actor)
			l.Actor = &a
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
