package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingRoleAssignment is the handoff row between registration and the
// role engine. The engine consumes and deletes it.
type PendingRoleAssignment struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides GORM pluralization.
func (PendingRoleAssignment) TableName() string {
	return "pending_role_assignments"
}
