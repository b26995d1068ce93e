package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member maps a chat-platform identity to an internal user within a
// tenant. Populated by the excluded member-management surface; the
// engine only ever reads it.
type Member struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_members_external,priority:1"`
	ExternalID  string         `gorm:"column:external_id;type:varchar(100);not null;uniqueIndex:ux_members_external,priority:2"`
	DisplayName string         `gorm:"column:display_name;type:varchar(100);not null"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Member) TableName() string {
	return "members"
}
