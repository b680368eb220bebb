package service

import (
	"context"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
)

// AuditStore persists audit entries.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByIdentity(ctx context.Context, identity domain.Identity, limit int) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging. A nil service or store drops
// entries, which is what dev mode without a database gets.
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, identity domain.Identity, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, identity, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, identity domain.Identity, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		Identity:  identity,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "identity", identity)
	}
}

// LogLogin logs a sign-in
func (s *AuditService) LogLogin(ctx context.Context, identity domain.Identity, provider, ip, userAgent string) {
	s.LogWithRequest(ctx, identity, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, map[string]interface{}{
		"provider": provider,
	})
}

// LogLogout logs a sign-out
func (s *AuditService) LogLogout(ctx context.Context, identity domain.Identity, ip, userAgent string) {
	s.LogWithRequest(ctx, identity, domain.AuditActionLogout, domain.AuditCategoryAuth, ip, userAgent, nil)
}

func (s *AuditService) LogTaskCreate(ctx context.Context, t domain.Task) {
	s.Log(ctx, t.Owner, domain.AuditActionTaskCreate, domain.AuditCategoryTask, map[string]interface{}{
		"task_id":    t.ID,
		"visibility": string(t.Visibility),
	})
}

func (s *AuditService) LogTaskDelete(ctx context.Context, identity domain.Identity, taskID string) {
	s.Log(ctx, identity, domain.AuditActionTaskDelete, domain.AuditCategoryTask, map[string]interface{}{
		"task_id": taskID,
	})
}

// LogTaskDeleteDenied records an attempt to delete somebody else's task.
func (s *AuditService) LogTaskDeleteDenied(ctx context.Context, identity domain.Identity, taskID, ip string) {
	s.LogWithRequest(ctx, identity, domain.AuditActionTaskDeleteDenied, domain.AuditCategoryTask, ip, "", map[string]interface{}{
		"task_id": taskID,
	})
}

// GetIdentityAuditLogs returns audit logs for identity
func (s *AuditService) GetIdentityAuditLogs(ctx context.Context, identity domain.Identity, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByIdentity(ctx, identity, limit)
}
