package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAuditLimit = 50

// AuditFilter narrows Find. Zero fields match everything.
type AuditFilter struct {
	Identity domain.Identity
	Category string
	Action   string
	Since    time.Time
	Limit    int
}

// AuditRepository stores session and task audit entries in audit_logs.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts log and fills in its id and timestamp.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	details, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		details = []byte("{}")
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (identity, action, category, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, string(log.Identity), log.Action, log.Category, details, log.IP, log.UserAgent).Scan(&log.ID, &log.CreatedAt)
}

// GetByIdentity returns the newest entries for identity.
func (r *AuditRepository) GetByIdentity(ctx context.Context, identity domain.Identity, limit int) ([]*domain.AuditLog, error) {
	return r.Find(ctx, AuditFilter{Identity: identity, Limit: limit})
}

// Find returns entries matching f, newest first.
func (r *AuditRepository) Find(ctx context.Context, f AuditFilter) ([]*domain.AuditLog, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !f.Identity.IsZero() {
		add("identity = $%d", string(f.Identity))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if f.Limit <= 0 {
		f.Limit = defaultAuditLimit
	}
	args = append(args, f.Limit)

	q := `SELECT id, identity, action, category, details, ip, user_agent, created_at FROM audit_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log      domain.AuditLog
			identity string
			details  []byte
		)
		if err := rows.Scan(&log.ID, &identity, &log.Action, &log.Category, &details, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		log.Identity = domain.Identity(identity)
		if err := json.Unmarshal(details, &log.Details); err != nil {
			log.Details = map[string]interface{}{}
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
