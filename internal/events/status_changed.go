package events

import "time"

const StatusChangedTopic = "attendance.status.changed"

// StatusChangedEvent is the best-effort fan-out payload pushed to
// real-time subscribers after a status transition commits. Field set
// mirrors what live dashboards render for a member tile.
type StatusChangedEvent struct {
	EventType        string     `json:"event_type"`
	RequestID        string     `json:"request_id,omitempty"`
	TenantID         string     `json:"tenant_id"`
	UserID           string     `json:"user_id"`
	Status           string     `json:"status"`
	Kind             string     `json:"kind"`
	Reason           *string    `json:"reason,omitempty"`
	ExpectedReturnAt *time.Time `json:"expected_return_at,omitempty"`
	LastCheckInAt    *time.Time `json:"last_check_in_at,omitempty"`
	LastCheckOutAt   *time.Time `json:"last_check_out_at,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}
