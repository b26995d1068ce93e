package attendance

import (
	"time"

	"github.com/google/uuid"
)

// User presence states derived from the event stream.
const (
	StatusActive  = "active"
	StatusOnBreak = "on_break"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// Event is one immutable attendance event in the per-tenant audit log.
//
// The (tenant_id, channel_id, message_id) unique index is the idempotency
// contract: re-processing the same source message can never append a
// second event. ActualDurationMinutes is the only field ever mutated
// after creation, filled in retroactively when the matching break end
// arrives.
type Event struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID              uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index;uniqueIndex:ux_attendance_events_message,priority:1"`
	UserID                *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	Kind                  string     `gorm:"column:kind;type:varchar(20);not null;index"`
	Confidence            float64    `gorm:"column:confidence;not null"`
	Reason                *string    `gorm:"column:reason;type:varchar(255)"`
	ReasonCategory        *string    `gorm:"column:reason_category;type:varchar(50)"`
	Urgency               string     `gorm:"column:urgency;type:varchar(20);not null;default:normal"`
	Source                string     `gorm:"column:source;type:varchar(20);not null;default:rule"`
	EventTime             time.Time  `gorm:"column:event_time;type:timestamptz;not null;index"`
	ExpectedReturnTime    *time.Time `gorm:"column:expected_return_time;type:timestamptz"`
	ActualDurationMinutes *int       `gorm:"column:actual_duration_minutes"`
	ChannelID             string     `gorm:"column:channel_id;type:varchar(100);not null;uniqueIndex:ux_attendance_events_message,priority:2"`
	MessageID             string     `gorm:"column:message_id;type:varchar(100);not null;uniqueIndex:ux_attendance_events_message,priority:3"`
	RawMessage            string     `gorm:"column:raw_message;type:text"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (Event) TableName() string {
	return "attendance_events"
}

// UserStatus is the materialized current-presence row, one per
// (tenant, user). It is a projection of that user's Event stream in
// event-time order; any divergence from a replay is a correctness bug.
type UserStatus struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID               uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_user_statuses_user,priority:1"`
	UserID                 uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_statuses_user,priority:2"`
	Status                 string     `gorm:"column:status;type:varchar(20);not null;default:unknown"`
	LastCheckInAt          *time.Time `gorm:"column:last_check_in_at;type:timestamptz"`
	LastCheckOutAt         *time.Time `gorm:"column:last_check_out_at;type:timestamptz"`
	LastBreakStartAt       *time.Time `gorm:"column:last_break_start_at;type:timestamptz"`
	CurrentBreakReason     *string    `gorm:"column:current_break_reason;type:varchar(255)"`
	ExpectedReturnAt       *time.Time `gorm:"column:expected_return_at;type:timestamptz"`
	TodayCheckInAt         *time.Time `gorm:"column:today_check_in_at;type:timestamptz"`
	TodayBreakCount        int        `gorm:"column:today_break_count;not null;default:0"`
	TodayTotalBreakMinutes int        `gorm:"column:today_total_break_minutes;not null;default:0"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
}

func (UserStatus) TableName() string {
	return "user_attendance_statuses"
}
