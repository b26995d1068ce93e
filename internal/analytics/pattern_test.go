package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"go-presence/internal/attendance"
)

func mkEvent(userID *uuid.UUID, kind string, at time.Time) attendance.Event {
	return attendance.Event{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		UserID:    userID,
		Kind:      kind,
		EventTime: at,
	}
}

func withBreak(ev attendance.Event, reason, category string, duration *int) attendance.Event {
	ev.Reason = &reason
	ev.ReasonCategory = &category
	ev.ActualDurationMinutes = duration
	return ev
}

func intPtr(v int) *int { return &v }

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestComputeUserPatterns_Empty(t *testing.T) {
	assert.Nil(t, ComputeUserPatterns(nil, 30))
}

func TestComputeUserPatterns_Averages(t *testing.T) {
	uid := uuid.New()
	events := []attendance.Event{
		mkEvent(&uid, "checkin", at(9, 0)),
		mkEvent(&uid, "checkin", at(9, 30)),
		mkEvent(&uid, "checkout", at(17, 0)),
		withBreak(mkEvent(&uid, "break_start", at(12, 0)), "lunch", "meal", intPtr(40)),
		withBreak(mkEvent(&uid, "break_start", at(15, 0)), "coffee", "rest", intPtr(10)),
	}

	p := ComputeUserPatterns(events, 10)

	assert.Equal(t, 2, p.TotalCheckIns)
	assert.Equal(t, 1, p.TotalCheckOuts)
	assert.Equal(t, 2, p.TotalBreaks)
	assert.Equal(t, "09:15", *p.AvgCheckInTime)
	assert.Equal(t, "17:00", *p.AvgCheckOutTime)
	assert.Equal(t, 0.2, *p.AvgBreaksPerDay)
	assert.Equal(t, 25.0, *p.AvgBreakDurationMinutes)
	assert.Equal(t, 50.0, p.BreakReasonDistribution["meal"])
	assert.Equal(t, 50.0, p.BreakReasonDistribution["rest"])
}

func TestComputeUserPatterns_UncategorizedBreakFallsBackToOther(t *testing.T) {
	uid := uuid.New()
	ev := mkEvent(&uid, "break_start", at(12, 0))

	p := ComputeUserPatterns([]attendance.Event{ev}, 1)

	assert.Equal(t, 100.0, p.BreakReasonDistribution["other"])
	assert.Nil(t, p.AvgBreakDurationMinutes)
}

func TestComputeTeamInsights_Empty(t *testing.T) {
	assert.Nil(t, ComputeTeamInsights(nil, nil))
}

func TestComputeTeamInsights_PeakHoursAndAverages(t *testing.T) {
	uid := uuid.New()
	names := map[uuid.UUID]string{uid: "Rina"}

	events := []attendance.Event{
		mkEvent(&uid, "checkin", at(9, 10)),
		mkEvent(&uid, "checkin", at(9, 45)),
		mkEvent(&uid, "checkin", at(10, 5)),
		mkEvent(&uid, "checkout", at(18, 0)),
	}

	ti := ComputeTeamInsights(events, names)

	assert.Equal(t, []PeakHour{
		{Hour: 9, Count: 2, Time: "09:00"},
		{Hour: 10, Count: 1, Time: "10:00"},
	}, ti.CheckInPatterns.PeakHours)

	// (9*2 + 10*1) / 3 = 9.33 -> 09:20
	assert.Equal(t, "09:20", *ti.CheckInPatterns.AverageTime)
	assert.Equal(t, map[string]int{"09:00": 2, "10:00": 1}, ti.CheckInPatterns.HourDistribution)
	assert.Equal(t, "18:00", *ti.CheckOutPatterns.AverageTime)
}

func TestComputeTeamInsights_BreakReasonsAndLongBreaks(t *testing.T) {
	uid := uuid.New()
	names := map[uuid.UUID]string{uid: "Rina"}

	events := []attendance.Event{
		withBreak(mkEvent(&uid, "break_start", at(12, 0)), "lunch", "meal", intPtr(45)),
		withBreak(mkEvent(&uid, "break_start", at(12, 30)), "nap", "rest", intPtr(90)),
		withBreak(mkEvent(&uid, "break_start", at(15, 0)), "coffee", "rest", intPtr(10)),
	}

	ti := ComputeTeamInsights(events, names)

	assert.Equal(t, []ReasonCount{
		{Reason: "rest", Count: 2},
		{Reason: "meal", Count: 1},
	}, ti.BreakPatterns.Reasons)

	// Only breaks over 30 minutes qualify, longest first.
	assert.Len(t, ti.BreakPatterns.LongBreaks, 2)
	assert.Equal(t, 90, ti.BreakPatterns.LongBreaks[0].DurationMinutes)
	assert.Equal(t, "nap", ti.BreakPatterns.LongBreaks[0].Reason)
	assert.Equal(t, "Rina", ti.BreakPatterns.LongBreaks[0].DisplayName)
	assert.Equal(t, 45, ti.BreakPatterns.LongBreaks[1].DurationMinutes)
}

func TestComputeTeamInsights_Rankings(t *testing.T) {
	early := uuid.New()
	late := uuid.New()
	names := map[uuid.UUID]string{early: "Early", late: "Late"}

	events := []attendance.Event{
		mkEvent(&early, "checkin", at(7, 0)),
		mkEvent(&late, "checkin", at(11, 0)),
		mkEvent(&early, "checkout", at(16, 0)),
		mkEvent(&late, "checkout", at(21, 0)),
		withBreak(mkEvent(&late, "break_start", at(13, 0)), "walk", "rest", nil),
		withBreak(mkEvent(&late, "break_start", at(14, 0)), "walk", "rest", nil),
		withBreak(mkEvent(&early, "break_start", at(10, 0)), "coffee", "rest", nil),
	}

	ti := ComputeTeamInsights(events, names)

	assert.Equal(t, "Early", ti.EarlyBirds[0].DisplayName)
	assert.Equal(t, "07:00", ti.EarlyBirds[0].AvgTime)
	assert.Equal(t, "Late", ti.NightOwls[0].DisplayName)
	assert.Equal(t, "21:00", ti.NightOwls[0].AvgTime)
	assert.Equal(t, "Late", ti.MostBreaks[0].DisplayName)
	assert.Equal(t, 2, ti.MostBreaks[0].BreakCount)
}

func TestComputeTeamInsights_UnattributedEventsCountOnlyInHistograms(t *testing.T) {
	events := []attendance.Event{
		mkEvent(nil, "checkin", at(9, 0)),
		withBreak(mkEvent(nil, "break_start", at(12, 0)), "lunch", "meal", intPtr(50)),
	}

	ti := ComputeTeamInsights(events, map[uuid.UUID]string{})

	assert.Equal(t, 1, ti.CheckInPatterns.HourDistribution["09:00"])
	assert.Equal(t, 1, ti.BreakPatterns.HourDistribution["12:00"])
	assert.Empty(t, ti.EarlyBirds)
	assert.Empty(t, ti.MostBreaks)
	assert.Len(t, ti.BreakPatterns.LongBreaks, 1)
}

func TestComputeTeamInsights_Deterministic(t *testing.T) {
	uid := uuid.New()
	events := []attendance.Event{
		mkEvent(&uid, "checkin", at(8, 0)),
		mkEvent(&uid, "checkin", at(9, 0)),
		withBreak(mkEvent(&uid, "break_start", at(12, 0)), "lunch", "meal", intPtr(35)),
	}
	names := map[uuid.UUID]string{uid: "Rina"}

	first := ComputeTeamInsights(events, names)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ComputeTeamInsights(events, names))
	}
}
