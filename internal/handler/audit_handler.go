package handler

import (
	"context"
	"go-cms-app/internal/data"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"net/http"
	"strconv"
	"time"
)

// AuditLister reads the audit log.
type AuditLister interface {
	List(ctx context.Context, filter data.AuditFilter) ([]*data.AuditLog, error)
}

// AuditHandler exposes the audit log to administrators.
type AuditHandler struct {
	audit AuditLister
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(a AuditLister) *AuditHandler {
	return &AuditHandler{audit: a}
}

// listHandler supports ?userId, ?action, ?resource, ?since, ?until (RFC 3339) and ?limit.
func (h *AuditHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	q := r.URL.Query()
	filter := data.AuditFilter{
		UserID:   q.Get("userId"),
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return appErrorFrom(&service.ValidationError{Field: "limit", Message: "must be a non-negative integer"}, "")
		}
		filter.Limit = limit
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &filter.Since}, {"until", &filter.Until}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return appErrorFrom(&service.ValidationError{Field: p.name, Message: "must be an RFC 3339 timestamp"}, "")
		}
		t = t.UTC()
		*p.dst = &t
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		return appErrorFrom(err, "Failed to list audit logs")
	}
	return writeJSON(w, http.StatusOK, entries)
}
