package service

import (
	"context"
	"time"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor *auth.Principal, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo     repository.AuditRepository
	userRepo repository.UserRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repos repository.Repositories) AuditService {
	return &auditService{repo: repos.Audit, userRepo: repos.Users}
}

// GetAuditLogs returns one page of entries, newest first, with actor names resolved.
func (s *auditService) GetAuditLogs(ctx context.Context, actor *auth.Principal, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	names := make(map[string]string)
	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "Guest"
		userID := ""
		if l.UserID != nil {
			userID = *l.UserID
			name, ok := names[userID]
			if !ok {
				name = "Deleted user"
				if u, err := s.userRepo.GetByID(ctx, userID); err == nil {
					name = u.Name
				}
				names[userID] = name
			}
			userName = name
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID,
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}
