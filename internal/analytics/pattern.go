package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"go-presence/internal/attendance"
)

// longBreakThresholdMinutes marks a break worth surfacing individually.
const longBreakThresholdMinutes = 30

const (
	peakHoursTopN    = 3
	breakReasonsTopN = 10
	longBreaksTopN   = 10
	usersTopN        = 5
)

// UserPatterns aggregates one user's event history into behavioral
// statistics. Pure function of the input slice; callers pass the window
// length so per-day rates stay honest even for sparse histories.
type UserPatterns struct {
	TotalCheckIns           int                `json:"total_checkins"`
	TotalCheckOuts          int                `json:"total_checkouts"`
	TotalBreaks             int                `json:"total_breaks"`
	AvgCheckInTime          *string            `json:"avg_checkin_time,omitempty"`
	AvgCheckOutTime         *string            `json:"avg_checkout_time,omitempty"`
	AvgBreaksPerDay         *float64           `json:"avg_breaks_per_day,omitempty"`
	BreakReasonDistribution map[string]float64 `json:"break_reason_distribution,omitempty"`
	AvgBreakDurationMinutes *float64           `json:"avg_break_duration_minutes,omitempty"`
}

// ComputeUserPatterns folds a single user's events over a days-long
// window. Average times use linear minute-of-day averaging; a spread
// across midnight skews the mean, an accepted limitation for teams that
// work daylight schedules.
func ComputeUserPatterns(events []attendance.Event, days int) *UserPatterns {
	if len(events) == 0 {
		return nil
	}

	p := &UserPatterns{}
	var checkinMinutes, checkoutMinutes []int
	var breakDurations []int
	reasonCounts := map[string]int{}

	for _, ev := range events {
		switch ev.Kind {
		case "checkin":
			p.TotalCheckIns++
			checkinMinutes = append(checkinMinutes, minuteOfDay(ev))
		case "checkout":
			p.TotalCheckOuts++
			checkoutMinutes = append(checkoutMinutes, minuteOfDay(ev))
		case "break_start":
			p.TotalBreaks++
			category := "other"
			if ev.ReasonCategory != nil {
				category = *ev.ReasonCategory
			}
			reasonCounts[category]++
			if ev.ActualDurationMinutes != nil {
				breakDurations = append(breakDurations, *ev.ActualDurationMinutes)
			}
		}
	}

	if s := averageClock(checkinMinutes); s != "" {
		p.AvgCheckInTime = &s
	}
	if s := averageClock(checkoutMinutes); s != "" {
		p.AvgCheckOutTime = &s
	}

	if p.TotalBreaks > 0 && days > 0 {
		rate := round1(float64(p.TotalBreaks) / float64(days))
		p.AvgBreaksPerDay = &rate

		p.BreakReasonDistribution = make(map[string]float64, len(reasonCounts))
		for category, n := range reasonCounts {
			p.BreakReasonDistribution[category] = round1(float64(n) / float64(p.TotalBreaks) * 100)
		}
	}

	if len(breakDurations) > 0 {
		sum := 0
		for _, d := range breakDurations {
			sum += d
		}
		avg := round1(float64(sum) / float64(len(breakDurations)))
		p.AvgBreakDurationMinutes = &avg
	}

	return p
}

// PeakHour is one bucket of an hour-of-day histogram.
type PeakHour struct {
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
	Time  string `json:"time"`
}

// KindPatterns describes when one kind of event tends to happen.
type KindPatterns struct {
	PeakHours        []PeakHour     `json:"peak_hours"`
	AverageTime      *string        `json:"average_time,omitempty"`
	HourDistribution map[string]int `json:"hour_distribution"`
}

// BreakPatterns extends KindPatterns with what the breaks were for.
type BreakPatterns struct {
	KindPatterns
	Reasons    []ReasonCount `json:"reasons"`
	LongBreaks []LongBreak   `json:"long_breaks"`
}

type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type LongBreak struct {
	DisplayName     string `json:"display_name"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
	Time            string `json:"time"`
}

type UserAverage struct {
	DisplayName string  `json:"display_name"`
	AvgHour     float64 `json:"avg_hour"`
	AvgTime     string  `json:"avg_time"`
}

type UserBreakCount struct {
	DisplayName string `json:"display_name"`
	BreakCount  int    `json:"break_count"`
}

// TeamInsights is the tenant-wide pattern summary.
type TeamInsights struct {
	CheckInPatterns  KindPatterns     `json:"checkin_patterns"`
	CheckOutPatterns KindPatterns     `json:"checkout_patterns"`
	BreakPatterns    BreakPatterns    `json:"break_patterns"`
	EarlyBirds       []UserAverage    `json:"early_birds"`
	NightOwls        []UserAverage    `json:"night_owls"`
	MostBreaks       []UserBreakCount `json:"most_breaks"`
}

type userAccumulator struct {
	name          string
	checkinHours  []int
	checkoutHours []int
	breakCount    int
}

// ComputeTeamInsights folds a tenant's events into team-level patterns.
// Unattributed events (nil user) still count toward the histograms but
// never toward per-user rankings. Pure function of the inputs.
func ComputeTeamInsights(events []attendance.Event, names map[uuid.UUID]string) *TeamInsights {
	if len(events) == 0 {
		return nil
	}

	checkinHours := map[int]int{}
	checkoutHours := map[int]int{}
	breakHours := map[int]int{}
	breakReasons := map[string]int{}
	var longBreaks []LongBreak
	users := map[uuid.UUID]*userAccumulator{}

	acc := func(id uuid.UUID) *userAccumulator {
		u, ok := users[id]
		if !ok {
			u = &userAccumulator{name: names[id]}
			users[id] = u
		}
		return u
	}

	for _, ev := range events {
		hour := ev.EventTime.Hour()

		switch ev.Kind {
		case "checkin":
			checkinHours[hour]++
			if ev.UserID != nil {
				u := acc(*ev.UserID)
				u.checkinHours = append(u.checkinHours, hour)
			}
		case "checkout":
			checkoutHours[hour]++
			if ev.UserID != nil {
				u := acc(*ev.UserID)
				u.checkoutHours = append(u.checkoutHours, hour)
			}
		case "break_start":
			breakHours[hour]++
			if ev.UserID != nil {
				acc(*ev.UserID).breakCount++
			}

			reason := "unspecified"
			if ev.ReasonCategory != nil {
				reason = *ev.ReasonCategory
			} else if ev.Reason != nil {
				reason = *ev.Reason
			}
			breakReasons[reason]++

			if ev.ActualDurationMinutes != nil && *ev.ActualDurationMinutes > longBreakThresholdMinutes {
				lb := LongBreak{
					DurationMinutes: *ev.ActualDurationMinutes,
					Reason:          "No reason given",
					Time:            ev.EventTime.Format(time.RFC3339),
				}
				if ev.Reason != nil {
					lb.Reason = *ev.Reason
				}
				if ev.UserID != nil {
					lb.DisplayName = names[*ev.UserID]
				}
				longBreaks = append(longBreaks, lb)
			}
		}
	}

	insights := &TeamInsights{
		CheckInPatterns:  buildKindPatterns(checkinHours),
		CheckOutPatterns: buildKindPatterns(checkoutHours),
		BreakPatterns: BreakPatterns{
			KindPatterns: buildKindPatterns(breakHours),
			Reasons:      topReasons(breakReasons, breakReasonsTopN),
			LongBreaks:   topLongBreaks(longBreaks, longBreaksTopN),
		},
	}

	for _, u := range users {
		if avg, ok := meanHour(u.checkinHours); ok {
			insights.EarlyBirds = append(insights.EarlyBirds, UserAverage{
				DisplayName: u.name,
				AvgHour:     avg,
				AvgTime:     clockFromHourFloat(avg),
			})
		}
		if avg, ok := meanHour(u.checkoutHours); ok {
			insights.NightOwls = append(insights.NightOwls, UserAverage{
				DisplayName: u.name,
				AvgHour:     avg,
				AvgTime:     clockFromHourFloat(avg),
			})
		}
		if u.breakCount > 0 {
			insights.MostBreaks = append(insights.MostBreaks, UserBreakCount{
				DisplayName: u.name,
				BreakCount:  u.breakCount,
			})
		}
	}

	sort.SliceStable(insights.EarlyBirds, func(i, j int) bool {
		return insights.EarlyBirds[i].AvgHour < insights.EarlyBirds[j].AvgHour
	})
	sort.SliceStable(insights.NightOwls, func(i, j int) bool {
		return insights.NightOwls[i].AvgHour > insights.NightOwls[j].AvgHour
	})
	sort.SliceStable(insights.MostBreaks, func(i, j int) bool {
		return insights.MostBreaks[i].BreakCount > insights.MostBreaks[j].BreakCount
	})

	insights.EarlyBirds = truncateAverages(insights.EarlyBirds, usersTopN)
	insights.NightOwls = truncateAverages(insights.NightOwls, usersTopN)
	if len(insights.MostBreaks) > usersTopN {
		insights.MostBreaks = insights.MostBreaks[:usersTopN]
	}

	return insights
}

func buildKindPatterns(hours map[int]int) KindPatterns {
	p := KindPatterns{
		PeakHours:        peakHours(hours, peakHoursTopN),
		HourDistribution: make(map[string]int, len(hours)),
	}
	for h, c := range hours {
		p.HourDistribution[fmt.Sprintf("%02d:00", h)] = c
	}
	if avg, ok := weightedMeanHour(hours); ok {
		s := clockFromHourFloat(avg)
		p.AverageTime = &s
	}
	return p
}

func peakHours(hours map[int]int, topN int) []PeakHour {
	out := make([]PeakHour, 0, len(hours))
	for h, c := range hours {
		out = append(out, PeakHour{Hour: h, Count: c, Time: fmt.Sprintf("%02d:00", h)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hour < out[j].Hour
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func topReasons(reasons map[string]int, topN int) []ReasonCount {
	out := make([]ReasonCount, 0, len(reasons))
	for r, c := range reasons {
		out = append(out, ReasonCount{Reason: r, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func topLongBreaks(breaks []LongBreak, topN int) []LongBreak {
	sort.SliceStable(breaks, func(i, j int) bool {
		return breaks[i].DurationMinutes > breaks[j].DurationMinutes
	})
	if len(breaks) > topN {
		breaks = breaks[:topN]
	}
	if breaks == nil {
		breaks = []LongBreak{}
	}
	return breaks
}

func truncateAverages(in []UserAverage, topN int) []UserAverage {
	if len(in) > topN {
		return in[:topN]
	}
	return in
}

// weightedMeanHour averages an hour histogram, weighting each bucket by
// its count. Linear, not circular; see ComputeUserPatterns.
func weightedMeanHour(hours map[int]int) (float64, bool) {
	totalWeight := 0
	totalCount := 0
	for h, c := range hours {
		totalWeight += h * c
		totalCount += c
	}
	if totalCount == 0 {
		return 0, false
	}
	return float64(totalWeight) / float64(totalCount), true
}

func meanHour(hours []int) (float64, bool) {
	if len(hours) == 0 {
		return 0, false
	}
	sum := 0
	for _, h := range hours {
		sum += h
	}
	return float64(sum) / float64(len(hours)), true
}

func clockFromHourFloat(avg float64) string {
	h := int(avg)
	m := int((avg - float64(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func minuteOfDay(ev attendance.Event) int {
	return ev.EventTime.Hour()*60 + ev.EventTime.Minute()
}

func averageClock(minutes []int) string {
	if len(minutes) == 0 {
		return ""
	}
	sum := 0
	for _, m := range minutes {
		sum += m
	}
	avg := sum / len(minutes)
	return fmt.Sprintf("%02d:%02d", avg/60, avg%60)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
