package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const auditColumns = `id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at`

// InsertAuditLog appends an entry to the audit log.
func (r *sqlRepository) InsertAuditLog(ctx context.Context, entry *AuditLog) error {
	query := `INSERT INTO audit_logs (` + auditColumns + `) VALUES (:id, :user_id, :action, :resource,
		:resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, entry); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns audit entries matching the filter, newest first.
func (r *sqlRepository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE 1 = 1`
	var args []interface{}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, filter.Action)
	}
	if filter.Resource != "" {
		query += ` AND resource = ?`
		args = append(args, filter.Resource)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.Until)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	entries := []*AuditLog{}
	if err := sqlx.SelectContext(ctx, r.q, &entries, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}

// DeleteAuditLogsBefore prunes entries older than cutoff and reports how many were removed.
func (r *sqlRepository) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM audit_logs WHERE created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit logs: %w", err)
	}
	return result.RowsAffected()
}
