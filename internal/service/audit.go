package service

import (
	"context"
	"encoding/json"
	"fmt"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/internal/repository"
)

// recordAudit writes one audit entry. actor may be nil for guest actions.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor *auth.Principal, action, entityID, entityName string, details any) error {
	payload := []byte("{}")
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		payload = b
	}

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if actor != nil {
		id := actor.ID
		entry.UserID = &id
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
