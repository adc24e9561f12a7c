package service

import (
	"context"
	"fmt"
	"go-cms-app/internal/data"
	"go-cms-app/internal/logger"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// auditEntry builds the log row for a page mutation. The acting user is always
// recorded here, independent of attribution on the page itself.
func (s *PageService) auditEntry(actor Actor, action, resourceID string, details data.Metadata) *data.AuditLog {
	if details == nil {
		details = data.Metadata{}
	}
	if client := describeClient(actor.UserAgent); client != nil {
		details["client"] = client
	}
	return &data.AuditLog{
		ID:         s.newID(),
		UserID:     actor.UserID,
		Action:     action,
		Resource:   resourcePages,
		ResourceID: resourceID,
		Details:    details,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		CreatedAt:  s.now(),
	}
}

// describeClient extracts browser, OS and device class from a user agent string.
func describeClient(raw string) map[string]interface{} {
	if raw == "" {
		return nil
	}
	ua := useragent.Parse(raw)

	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	}

	browser, os := ua.Name, ua.OS
	if browser == "" {
		browser = "Unknown"
	}
	if os == "" {
		os = "Unknown"
	}
	return map[string]interface{}{"browser": browser, "os": os, "device": device}
}

// AuditService reads and prunes the audit log.
type AuditService struct {
	store data.Repository
	log   logger.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(store data.Repository, log logger.Logger) *AuditService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditService{store: store, log: log}
}

// List returns audit entries newest first. The limit defaults to 100 and is capped at 1000.
func (s *AuditService) List(ctx context.Context, filter data.AuditFilter) ([]*data.AuditLog, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultAuditLimit
	case filter.Limit > maxAuditLimit:
		filter.Limit = maxAuditLimit
	}
	entries, err := s.store.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}

// Record appends an entry that is not tied to a page mutation, such as a login.
func (s *AuditService) Record(ctx context.Context, actor Actor, action, resource, resourceID string, details data.Metadata) error {
	if details == nil {
		details = data.Metadata{}
	}
	if client := describeClient(actor.UserAgent); client != nil {
		details["client"] = client
	}
	entry := &data.AuditLog{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Prune deletes entries older than the retention window. A zero or negative
// retention keeps everything.
func (s *AuditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	n, err := s.store.DeleteAuditLogsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit logs: %w", err)
	}
	if n > 0 {
		s.log.With(map[string]interface{}{"deleted": n, "cutoff": cutoff}).Info("Pruned audit logs")
	}
	return n, nil
}
