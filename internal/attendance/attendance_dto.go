package attendance

import "time"

// Message is one inbound chat message handed to the engine, already
// tagged by the upstream bridge.
type Message struct {
	TenantID         string
	AuthorExternalID string
	ChannelID        string
	MessageID        string
	Text             string
	AuthoredAt       time.Time
}

type ProcessMessageRequest struct {
	AuthorExternalID string    `json:"author_external_id" binding:"required"`
	ChannelID        string    `json:"channel_id" binding:"required"`
	MessageID        string    `json:"message_id" binding:"required"`
	Text             string    `json:"text"`
	AuthoredAt       time.Time `json:"authored_at" binding:"required"`
}

type EventResponse struct {
	ID                    string  `json:"id"`
	TenantID              string  `json:"tenant_id"`
	UserID                *string `json:"user_id,omitempty"`
	Kind                  string  `json:"kind"`
	Confidence            float64 `json:"confidence"`
	Reason                *string `json:"reason,omitempty"`
	ReasonCategory        *string `json:"reason_category,omitempty"`
	Urgency               string  `json:"urgency"`
	Source                string  `json:"source"`
	EventTime             string  `json:"event_time"`
	ExpectedReturnTime    *string `json:"expected_return_time,omitempty"`
	ActualDurationMinutes *int    `json:"actual_duration_minutes,omitempty"`
	ChannelID             string  `json:"channel_id"`
	MessageID             string  `json:"message_id"`
}

type TodayStats struct {
	CheckInAt         *string `json:"check_in_at,omitempty"`
	BreakCount        int     `json:"break_count"`
	TotalBreakMinutes int     `json:"total_break_minutes"`
}

type UserStatusResponse struct {
	UserID             string     `json:"user_id"`
	DisplayName        string     `json:"display_name,omitempty"`
	Status             string     `json:"status"`
	LastCheckInAt      *string    `json:"last_check_in_at,omitempty"`
	LastCheckOutAt     *string    `json:"last_check_out_at,omitempty"`
	LastBreakStartAt   *string    `json:"last_break_start_at,omitempty"`
	CurrentBreakReason *string    `json:"current_break_reason,omitempty"`
	ExpectedReturnAt   *string    `json:"expected_return_at,omitempty"`
	TodayStats         TodayStats `json:"today_stats"`
}

func mapEventToResponse(e Event) EventResponse {
	resp := EventResponse{
		ID:                    e.ID.String(),
		TenantID:              e.TenantID.String(),
		Kind:                  e.Kind,
		Confidence:            e.Confidence,
		Reason:                e.Reason,
		ReasonCategory:        e.ReasonCategory,
		Urgency:               e.Urgency,
		Source:                e.Source,
		EventTime:             e.EventTime.Format(time.RFC3339),
		ActualDurationMinutes: e.ActualDurationMinutes,
		ChannelID:             e.ChannelID,
		MessageID:             e.MessageID,
	}
	if e.UserID != nil {
		v := e.UserID.String()
		resp.UserID = &v
	}
	if e.ExpectedReturnTime != nil {
		v := e.ExpectedReturnTime.Format(time.RFC3339)
		resp.ExpectedReturnTime = &v
	}
	return resp
}

func mapStatusToResponse(st UserStatus, displayName string) UserStatusResponse {
	resp := UserStatusResponse{
		UserID:             st.UserID.String(),
		DisplayName:        displayName,
		Status:             st.Status,
		LastCheckInAt:      formatTimePtr(st.LastCheckInAt),
		LastCheckOutAt:     formatTimePtr(st.LastCheckOutAt),
		LastBreakStartAt:   formatTimePtr(st.LastBreakStartAt),
		CurrentBreakReason: st.CurrentBreakReason,
		ExpectedReturnAt:   formatTimePtr(st.ExpectedReturnAt),
		TodayStats: TodayStats{
			CheckInAt:         formatTimePtr(st.TodayCheckInAt),
			BreakCount:        st.TodayBreakCount,
			TotalBreakMinutes: st.TodayTotalBreakMinutes,
		},
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
