package domain

import "time"

// AuditLog records session and task actions.
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	Identity  Identity               `db:"identity" json:"identity"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth = "auth"
	AuditCategoryTask = "task"
)

// Audit actions
const (
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"

	AuditActionTaskCreate       = "task_create"
	AuditActionTaskDelete       = "task_delete"
	AuditActionTaskDeleteDenied = "task_delete_denied"
)
