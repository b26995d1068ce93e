package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-presence/internal/attendance"
	"go-presence/internal/identity"
	"go-presence/internal/shared/apperror"
)

const (
	defaultPatternDays  = 30
	maxPatternDays      = 90
	defaultSummaryDays  = 7
	maxSummaryDays      = 30
	minInsightWindowDay = 7
)

//go:generate mockgen -source=analytics_service.go -destination=mock/analytics_service_mock.go -package=mock
type Service interface {
	GetUserPatterns(ctx context.Context, tenantID, userID string, days int) (*UserPatternsResponse, error)
	GetSummary(ctx context.Context, tenantID string, days int) (*SummaryResponse, error)
	GetInsights(ctx context.Context, tenantID string, days int) (*InsightsResponse, error)
}

type service struct {
	events  attendance.Repository
	members identity.Repository
	logger  *zap.Logger
}

func NewService(events attendance.Repository, members identity.Repository, logger ...*zap.Logger) Service {
	l := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &service{
		events:  events,
		members: members,
		logger:  l.Named("analytics.service"),
	}
}

func (s *service) GetUserPatterns(ctx context.Context, tenantID, userID string, days int) (*UserPatternsResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid user id", http.StatusBadRequest)
	}
	days = clampDays(days, defaultPatternDays, maxPatternDays)

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.events.ListByUserSince(ctx, tid, uid, since)
	if err != nil {
		return nil, err
	}

	resp := &UserPatternsResponse{
		UserID:     userID,
		PeriodDays: days,
		Patterns:   ComputeUserPatterns(rows, days),
	}
	if resp.Patterns == nil {
		resp.Message = "not enough data to compute patterns"
	}
	return resp, nil
}

func (s *service) GetSummary(ctx context.Context, tenantID string, days int) (*SummaryResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}
	days = clampDays(days, defaultSummaryDays, maxSummaryDays)

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.events.ListByTenantSince(ctx, tid, since)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	seen := map[uuid.UUID]struct{}{}
	for _, ev := range rows {
		counts[ev.Kind]++
		if ev.UserID != nil {
			seen[*ev.UserID] = struct{}{}
		}
	}

	return &SummaryResponse{
		PeriodDays:  days,
		EventCounts: counts,
		UniqueUsers: len(seen),
		TotalEvents: len(rows),
	}, nil
}

func (s *service) GetInsights(ctx context.Context, tenantID string, days int) (*InsightsResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}
	days = clampDays(days, defaultPatternDays, maxPatternDays)
	if days < minInsightWindowDay {
		days = minInsightWindowDay
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.events.ListByTenantSince(ctx, tid, since)
	if err != nil {
		return nil, err
	}

	resp := &InsightsResponse{PeriodDays: days}
	if len(rows) == 0 {
		resp.Message = "no attendance data for this period"
		return resp, nil
	}

	names, err := s.members.DisplayNames(ctx, tid)
	if err != nil {
		// Rankings degrade to blank names rather than failing the read.
		s.logger.Warn("display name lookup failed", zap.Error(err))
		names = map[uuid.UUID]string{}
	}

	resp.HasData = true
	resp.Insights = ComputeTeamInsights(rows, names)
	return resp, nil
}

func clampDays(days, def, max int) int {
	if days <= 0 {
		return def
	}
	if days > max {
		return max
	}
	return days
}
