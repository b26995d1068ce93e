package attendance

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"go-presence/internal/classifier"
)

// BreakReconciliation is the retroactive work a break end produces: the
// matching break_start audit event must receive the actual duration.
type BreakReconciliation struct {
	BreakStartAt time.Time
	Minutes      int
}

// Apply mutates the status row with exactly one transition for the
// given event and returns the reconciliation to perform, if any.
//
// Apply is pure apart from the row it is handed: replaying a user's
// events in event-time order through it must reproduce the stored row
// exactly. It never rejects an event; a break end with no open break
// still transitions to active so a lost break start cannot strand the
// user on break.
func Apply(st *UserStatus, ev *Event) *BreakReconciliation {
	t := ev.EventTime
	var rec *BreakReconciliation

	switch classifier.Kind(ev.Kind) {
	case classifier.KindCheckIn:
		st.Status = StatusActive
		st.LastCheckInAt = &t
		st.TodayCheckInAt = &t
		st.CurrentBreakReason = nil
		st.ExpectedReturnAt = nil

	case classifier.KindCheckOut:
		st.Status = StatusOffline
		st.LastCheckOutAt = &t
		st.CurrentBreakReason = nil
		st.ExpectedReturnAt = nil

	case classifier.KindBreakStart:
		st.Status = StatusOnBreak
		st.LastBreakStartAt = &t
		st.CurrentBreakReason = ev.Reason
		st.TodayBreakCount++
		st.ExpectedReturnAt = ev.ExpectedReturnTime

	case classifier.KindBreakEnd:
		if st.LastBreakStartAt != nil {
			minutes := int(t.Sub(*st.LastBreakStartAt).Minutes())
			st.TodayTotalBreakMinutes += minutes
			rec = &BreakReconciliation{
				BreakStartAt: *st.LastBreakStartAt,
				Minutes:      minutes,
			}
		}
		st.Status = StatusActive
		st.CurrentBreakReason = nil
		st.ExpectedReturnAt = nil
	}

	return rec
}

// NewUserStatus is the pre-event projection row for a user.
func NewUserStatus(tenantID, userID uuid.UUID) *UserStatus {
	return &UserStatus{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Status:   StatusUnknown,
	}
}

// Replay rebuilds a user's status row from scratch by folding their
// events in event-time order. Used to verify (and repair) the stored
// projection.
func Replay(tenantID, userID uuid.UUID, eventLog []Event) *UserStatus {
	ordered := make([]Event, 0, len(eventLog))
	for _, ev := range eventLog {
		if ev.UserID != nil && *ev.UserID == userID {
			ordered = append(ordered, ev)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EventTime.Before(ordered[j].EventTime)
	})

	st := NewUserStatus(tenantID, userID)
	for i := range ordered {
		Apply(st, &ordered[i])
	}
	return st
}
