package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"go-presence/internal/classifier"
	"go-presence/internal/events"
	"go-presence/internal/identity"
	"go-presence/internal/shared/apperror"
	"go-presence/internal/shared/contextutil"
)

const TeamStatusKeyPrefix = "attendance:team_status:"

func GetTeamStatusKey(tenantID string) string {
	return TeamStatusKeyPrefix + tenantID
}

const teamStatusCacheTTL = 30 * time.Second

// publishTimeout bounds the detached fan-out call after commit.
const publishTimeout = 5 * time.Second

// errDuplicateMessage marks a message the audit log already holds.
var errDuplicateMessage = errors.New("message already processed")

// Classifier is the orchestrated classification entry point the engine
// depends on. It always returns a Result; KindNone means no event.
type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	ProcessMessage(ctx context.Context, msg Message) (*EventResponse, error)
	GetTeamStatus(ctx context.Context, tenantID string) ([]UserStatusResponse, error)
	GetUserHistory(ctx context.Context, tenantID, userID string, days int) ([]EventResponse, error)
	ResetDailyStats(ctx context.Context, tenantID string) error
}

type service struct {
	db         *gorm.DB
	repo       Repository
	statusRepo StatusRepository
	members    identity.Resolver
	classify   Classifier
	publisher  StatusPublisher
	rdb        *redis.Client
	locks      *keyedMutex
	sf         *singleflight.Group
	names      NameLookup
	logger     *zap.Logger
}

// NameLookup decorates status rows with display names for the team view.
type NameLookup interface {
	DisplayNames(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]string, error)
}

func NewService(
	db *gorm.DB,
	repo Repository,
	statusRepo StatusRepository,
	members identity.Repository,
	classify Classifier,
	publisher StatusPublisher,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if publisher == nil {
		publisher = NewNoopStatusPublisher()
	}
	return &service{
		db:         db,
		repo:       repo,
		statusRepo: statusRepo,
		members:    members,
		classify:   classify,
		publisher:  publisher,
		rdb:        rdb,
		locks:      newKeyedMutex(),
		sf:         &singleflight.Group{},
		names:      members,
		logger:     l.Named("attendance.service"),
	}
}

// ProcessMessage classifies one chat message and, when it carries an
// attendance event, appends it to the audit log and applies the status
// transition atomically. Returns nil when the message is not an
// attendance event or was already processed.
//
// Classification (including the time-bounded AI call) happens before the
// per-(tenant,user) lock is taken; the lock only covers applying the
// already-computed event.
func (s *service) ProcessMessage(ctx context.Context, msg Message) (*EventResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	tenantID, err := uuid.Parse(msg.TenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}

	res := s.classify.Classify(ctx, msg.Text)
	if res.Kind == classifier.KindNone {
		return nil, nil
	}

	userID, err := s.members.Resolve(ctx, tenantID, msg.AuthorExternalID)
	if err != nil {
		// Resolution failure must not block the audit trail; record with
		// a null user and skip the projection.
		s.logger.Warn("identity resolution failed, recording unattributed event",
			zap.String("request_id", rid),
			zap.String("author_external_id", msg.AuthorExternalID),
			zap.Error(err),
		)
		userID = nil
	}

	unlock := s.locks.Lock(lockKey(tenantID, userID, msg.AuthorExternalID))
	defer unlock()

	ev := s.buildEvent(tenantID, userID, msg, res)

	var changed *UserStatus
	err = s.db.Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)
		stx := s.statusRepo.WithTx(tx)

		// Existence check first; the unique index on (tenant, channel,
		// message) backstops any race between the check and the insert.
		if _, err := qtx.FindByMessage(ctx, tenantID, msg.ChannelID, msg.MessageID); err == nil {
			return errDuplicateMessage
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := qtx.Create(ctx, ev); err != nil {
			if isUniqueViolation(err) {
				return errDuplicateMessage
			}
			return err
		}

		if userID == nil {
			return nil
		}

		st, err := stx.FindByUser(ctx, tenantID, *userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			st = NewUserStatus(tenantID, *userID)
		} else if err != nil {
			return err
		}

		if rec := Apply(st, ev); rec != nil {
			if err := s.reconcileBreak(ctx, qtx, tenantID, *userID, rec); err != nil {
				return err
			}
		}

		if err := stx.Save(ctx, st); err != nil {
			return err
		}
		changed = st
		return nil
	})

	if errors.Is(err, errDuplicateMessage) {
		s.logger.Debug("duplicate message skipped",
			zap.String("request_id", rid),
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.MessageID),
		)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("record attendance event failed",
			zap.String("request_id", rid),
			zap.String("kind", string(res.Kind)),
			zap.Error(err),
		)
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "failed to record attendance event", http.StatusInternalServerError)
	}

	s.invalidateTeamStatus(ctx, msg.TenantID)

	if changed != nil {
		s.publishStatusChange(rid, ev, changed)
	}

	s.logger.Info("attendance event recorded",
		zap.String("request_id", rid),
		zap.String("tenant_id", msg.TenantID),
		zap.String("kind", ev.Kind),
		zap.Float64("confidence", ev.Confidence),
		zap.String("source", ev.Source),
		zap.Bool("attributed", userID != nil),
	)

	resp := mapEventToResponse(*ev)
	return &resp, nil
}

func (s *service) buildEvent(tenantID uuid.UUID, userID *uuid.UUID, msg Message, res classifier.Result) *Event {
	ev := &Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UserID:     userID,
		Kind:       string(res.Kind),
		Confidence: res.Confidence,
		Urgency:    string(res.Urgency),
		Source:     string(res.Source),
		EventTime:  msg.AuthoredAt.UTC(),
		ChannelID:  msg.ChannelID,
		MessageID:  msg.MessageID,
		RawMessage: msg.Text,
	}
	if res.Reason != "" {
		reason := res.Reason
		ev.Reason = &reason
	}
	if res.ReasonCategory != "" {
		category := string(res.ReasonCategory)
		ev.ReasonCategory = &category
	}
	if res.Kind == classifier.KindBreakStart && res.ExpectedDurationMinutes != nil {
		ret := ev.EventTime.Add(time.Duration(*res.ExpectedDurationMinutes) * time.Minute)
		ev.ExpectedReturnTime = &ret
	}
	return ev
}

// reconcileBreak retroactively writes the actual duration onto the
// break_start event that opened the just-closed break. A missing match
// (lost or trimmed event) is tolerated; the daily counter already moved.
func (s *service) reconcileBreak(ctx context.Context, qtx Repository, tenantID, userID uuid.UUID, rec *BreakReconciliation) error {
	bs, err := qtx.FindBreakStartNear(ctx, tenantID, userID, rec.BreakStartAt)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("no break_start event found for reconciliation",
			zap.String("user_id", userID.String()),
			zap.Time("break_start_at", rec.BreakStartAt),
		)
		return nil
	}
	if err != nil {
		return err
	}
	return qtx.SetActualDuration(ctx, bs.ID, rec.Minutes)
}

// publishStatusChange schedules the best-effort fan-out on a detached
// goroutine so the caller's critical path never waits on subscribers.
func (s *service) publishStatusChange(rid string, ev *Event, st *UserStatus) {
	payload := events.StatusChangedEvent{
		EventType:        "attendance_status_changed",
		RequestID:        rid,
		TenantID:         st.TenantID.String(),
		UserID:           st.UserID.String(),
		Status:           st.Status,
		Kind:             ev.Kind,
		Reason:           ev.Reason,
		ExpectedReturnAt: st.ExpectedReturnAt,
		LastCheckInAt:    st.LastCheckInAt,
		LastCheckOutAt:   st.LastCheckOutAt,
		OccurredAt:       ev.EventTime,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishStatusChanged(ctx, payload); err != nil {
			s.logger.Warn("status change fan-out failed",
				zap.String("request_id", rid),
				zap.String("user_id", payload.UserID),
				zap.Error(err),
			)
		}
	}()
}

// GetTeamStatus returns the current status row for every member of the
// tenant. Reads go through a short redis cache filled under
// singleflight so dashboard refresh storms hit the database once.
func (s *service) GetTeamStatus(ctx context.Context, tenantID string) ([]UserStatusResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}

	cacheKey := GetTeamStatusKey(tenantID)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp []UserStatusResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		rows, err := s.statusRepo.ListByTenant(ctx, tid)
		if err != nil {
			return nil, err
		}

		names := map[uuid.UUID]string{}
		if s.names != nil {
			if resolved, err := s.names.DisplayNames(ctx, tid); err == nil {
				names = resolved
			}
		}

		resp := make([]UserStatusResponse, len(rows))
		for i, row := range rows {
			resp[i] = mapStatusToResponse(row, names[row.UserID])
		}

		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, teamStatusCacheTTL)
			}
		}

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]UserStatusResponse), nil
}

func (s *service) GetUserHistory(ctx context.Context, tenantID, userID string, days int) ([]EventResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "invalid user id", http.StatusBadRequest)
	}
	if days <= 0 {
		days = 7
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.repo.ListByUserSince(ctx, tid, uid, since)
	if err != nil {
		return nil, err
	}

	resp := make([]EventResponse, len(rows))
	for i, row := range rows {
		resp[i] = mapEventToResponse(row)
	}
	return resp, nil
}

// ResetDailyStats zeroes the daily counters for a tenant. Invoked by the
// scheduled worker at the start of each day.
func (s *service) ResetDailyStats(ctx context.Context, tenantID string) error {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return apperror.New(apperror.CodeInvalidInput, "invalid tenant id", http.StatusBadRequest)
	}

	if err := s.statusRepo.ResetDaily(ctx, tid); err != nil {
		return err
	}

	s.invalidateTeamStatus(ctx, tenantID)
	s.logger.Info("daily attendance stats reset", zap.String("tenant_id", tenantID))
	return nil
}

func (s *service) invalidateTeamStatus(ctx context.Context, tenantID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := GetTeamStatusKey(tenantID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate team status cache",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}

func lockKey(tenantID uuid.UUID, userID *uuid.UUID, externalID string) string {
	if userID != nil {
		return tenantID.String() + ":" + userID.String()
	}
	return tenantID.String() + ":ext:" + externalID
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
