package store

import (
	"context"
	"fmt"
	"strings"
)

func (s *PostgresStore) InsertAuditLog(ctx context.Context, entry AuditEntry) error {
	payload := entry.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, actor_name, action, entity_type, entity_id, summary, payload, ip_address, user_agent, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)
	`, entry.ActorID, entry.ActorName, entry.Action, entry.EntityType, entry.EntityID, entry.Summary, string(payload), entry.IPAddress, entry.UserAgent, entry.RequestID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns entries matching filter, newest first.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	var where []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if v := strings.TrimSpace(filter.EntityType); v != "" {
		add("entity_type = $%d", v)
	}
	if v := strings.TrimSpace(filter.EntityID); v != "" {
		add("entity_id = $%d", v)
	}
	if v := strings.TrimSpace(filter.Actor); v != "" {
		add("(actor_id = $%[1]d OR actor_name = $%[1]d)", v)
	}
	if v := strings.TrimSpace(filter.Action); v != "" {
		add("action = $%d", strings.ToUpper(v))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	opts := ListOptions{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	query := `SELECT id, actor_id, actor_name, action, entity_type, entity_id, summary, payload, ip_address, user_agent, request_id, created_at FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	items := make([]AuditEntry, 0)
	for rows.Next() {
		var item AuditEntry
		var payload []byte
		if err := rows.Scan(&item.ID, &item.ActorID, &item.ActorName, &item.Action, &item.EntityType, &item.EntityID, &item.Summary, &payload, &item.IPAddress, &item.UserAgent, &item.RequestID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		item.Payload = payload
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return items, nil
}
