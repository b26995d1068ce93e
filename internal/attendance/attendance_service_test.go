package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"go-presence/internal/classifier"
	"go-presence/internal/events"
)

type fakeEventRepo struct {
	mu      sync.Mutex
	byMsg   map[string]*Event
	created []*Event

	createErr            error
	findBreakStartNearFn func(ctx context.Context, tenantID, userID uuid.UUID, around time.Time) (*Event, error)
	durations            map[uuid.UUID]int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byMsg:     map[string]*Event{},
		durations: map[uuid.UUID]int{},
	}
}

func (f *fakeEventRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeEventRepo) Create(ctx context.Context, e *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := e.ChannelID + "/" + e.MessageID
	if _, ok := f.byMsg[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.byMsg[key] = e
	f.created = append(f.created, e)
	return nil
}

func (f *fakeEventRepo) FindByMessage(ctx context.Context, tenantID uuid.UUID, channelID, messageID string) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byMsg[channelID+"/"+messageID]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) FindBreakStartNear(ctx context.Context, tenantID, userID uuid.UUID, around time.Time) (*Event, error) {
	if f.findBreakStartNearFn != nil {
		return f.findBreakStartNearFn(ctx, tenantID, userID, around)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.created {
		if e.Kind == "break_start" && e.UserID != nil && *e.UserID == userID {
			diff := e.EventTime.Sub(around)
			if diff < 0 {
				diff = -diff
			}
			if diff <= time.Minute {
				return e, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) SetActualDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[id] = minutes
	return nil
}

func (f *fakeEventRepo) ListByUserSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.created {
		if e.UserID != nil && *e.UserID == userID && !e.EventTime.Before(since) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.created {
		if e.TenantID == tenantID && !e.EventTime.Before(since) {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeStatusRepo struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*UserStatus
	resets int
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{byUser: map[uuid.UUID]*UserStatus{}}
}

func (f *fakeStatusRepo) WithTx(tx *gorm.DB) StatusRepository { return f }

func (f *fakeStatusRepo) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*UserStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.byUser[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStatusRepo) Save(ctx context.Context, st *UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *st
	f.byUser[st.UserID] = &cp
	return nil
}

func (f *fakeStatusRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]UserStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []UserStatus
	for _, st := range f.byUser {
		if st.TenantID == tenantID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (f *fakeStatusRepo) ResetDaily(ctx context.Context, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	for _, st := range f.byUser {
		if st.TenantID == tenantID {
			st.TodayCheckInAt = nil
			st.TodayBreakCount = 0
			st.TodayTotalBreakMinutes = 0
		}
	}
	return nil
}

func (f *fakeStatusRepo) ResetDailyAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

type fakeMembers struct {
	ids   map[string]uuid.UUID
	names map[uuid.UUID]string
	err   error
}

func (f *fakeMembers) Resolve(ctx context.Context, tenantID uuid.UUID, externalID string) (*uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id, ok := f.ids[externalID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeMembers) DisplayNames(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]string, error) {
	return f.names, nil
}

type stubClassifier struct {
	res classifier.Result
}

func (s stubClassifier) Classify(ctx context.Context, text string) classifier.Result {
	return s.res
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.StatusChangedEvent
	err    error
	done   chan struct{}
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{done: make(chan struct{}, 16)}
}

func (p *capturingPublisher) PublishStatusChanged(ctx context.Context, ev events.StatusChangedEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.done <- struct{}{}
	return p.err
}

func (p *capturingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

func newTestGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	assert.NoError(t, err)
	return gdb, mock
}

type serviceFixture struct {
	svc       Service
	repo      *fakeEventRepo
	status    *fakeStatusRepo
	publisher *capturingPublisher
	mock      sqlmock.Sqlmock
	tenantID  uuid.UUID
	userID    uuid.UUID
}

func newServiceFixture(t *testing.T, res classifier.Result) *serviceFixture {
	t.Helper()
	gdb, mock := newTestGorm(t)

	tenantID := uuid.New()
	userID := uuid.New()

	repo := newFakeEventRepo()
	status := newFakeStatusRepo()
	publisher := newCapturingPublisher()
	members := &fakeMembers{
		ids:   map[string]uuid.UUID{"discord-42": userID},
		names: map[uuid.UUID]string{userID: "Rina"},
	}

	svc := NewService(gdb, repo, status, members, stubClassifier{res: res}, publisher, nil, zap.NewNop())
	return &serviceFixture{
		svc:       svc,
		repo:      repo,
		status:    status,
		publisher: publisher,
		mock:      mock,
		tenantID:  tenantID,
		userID:    userID,
	}
}

func (fx *serviceFixture) message(messageID, text string, at time.Time) Message {
	return Message{
		TenantID:         fx.tenantID.String(),
		AuthorExternalID: "discord-42",
		ChannelID:        "ch-1",
		MessageID:        messageID,
		Text:             text,
		AuthoredAt:       at,
	}
}

func breakStartResult(reason string, minutes int) classifier.Result {
	m := minutes
	return classifier.Result{
		Kind:                    classifier.KindBreakStart,
		Confidence:              0.95,
		Reason:                  reason,
		ReasonCategory:          classifier.CategoryPersonal,
		ExpectedDurationMinutes: &m,
		Urgency:                 classifier.UrgencyNormal,
		Source:                  classifier.SourceRule,
	}
}

func TestProcessMessage_RecordsEventAndProjectsStatus(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	resp, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", at))

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, "checkin", resp.Kind)
	assert.Equal(t, fx.userID.String(), *resp.UserID)

	st, err := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.NoError(t, err)
	assert.Equal(t, StatusActive, st.Status)

	fx.publisher.wait(t)
	assert.Equal(t, StatusActive, fx.publisher.events[0].Status)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_NoneKindWritesNothing(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindNone,
		Confidence: 1.0,
		Source:     classifier.SourceRule,
	})

	resp, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "how was the weekend?", time.Now()))

	assert.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, fx.repo.created)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_DuplicateMessageIsIdempotent(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	first, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", at))
	assert.NoError(t, err)
	assert.NotNil(t, first)
	fx.publisher.wait(t)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	second, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", at))
	assert.NoError(t, err)
	assert.Nil(t, second)

	assert.Len(t, fx.repo.created, 1)
	assert.Len(t, fx.publisher.events, 1)

	st, _ := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.Equal(t, StatusActive, st.Status)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_UniqueViolationOnInsertIsIdempotent(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})

	// The existence check misses but the insert trips the unique index,
	// the race the index exists to backstop.
	fx.repo.createErr = gorm.ErrDuplicatedKey

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	resp, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", time.Now().UTC()))

	assert.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, fx.repo.created)
	assert.Empty(t, fx.publisher.events)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}

func TestProcessMessage_UnresolvedUserRecordsUnattributedEvent(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	msg := fx.message("m-9", "✅ Available", at)
	msg.AuthorExternalID = "stranger"

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	resp, err := fx.svc.ProcessMessage(context.Background(), msg)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Nil(t, resp.UserID)
	assert.Len(t, fx.repo.created, 1)
	assert.Nil(t, fx.repo.created[0].UserID)

	// No projection and no fan-out for an unattributed event.
	assert.Empty(t, fx.status.byUser)
	assert.Empty(t, fx.publisher.events)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_BreakCycleReconcilesDuration(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	fx := newServiceFixture(t, breakStartResult("doctor appointment", 45))

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	resp, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "BRB - doctor appointment, back in 45", start))
	assert.NoError(t, err)
	assert.Equal(t, "break_start", resp.Kind)
	assert.Equal(t, start.Add(45*time.Minute).Format(time.RFC3339), *resp.ExpectedReturnTime)
	fx.publisher.wait(t)

	breakStartID := fx.repo.created[0].ID

	// Swap in a break_end classification for the follow-up message.
	fxSvc := fx.svc.(*service)
	fxSvc.classify = stubClassifier{res: classifier.Result{
		Kind:       classifier.KindBreakEnd,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	}}

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err = fx.svc.ProcessMessage(context.Background(), fx.message("m-2", "back", start.Add(47*time.Minute)))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	assert.Equal(t, 47, fx.repo.durations[breakStartID])

	st, _ := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, 47, st.TodayTotalBreakMinutes)
	assert.Equal(t, 1, st.TodayBreakCount)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_MissingBreakStartDoesNotFail(t *testing.T) {
	fx := newServiceFixture(t, breakStartResult("coffee", 10))
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "BRB - coffee, back in 10", start))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	// The audit lookup misses even though the projection saw the break.
	fx.repo.findBreakStartNearFn = func(ctx context.Context, tenantID, userID uuid.UUID, around time.Time) (*Event, error) {
		return nil, gorm.ErrRecordNotFound
	}

	fxSvc := fx.svc.(*service)
	fxSvc.classify = stubClassifier{res: classifier.Result{
		Kind:       classifier.KindBreakEnd,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	}}

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err = fx.svc.ProcessMessage(context.Background(), fx.message("m-2", "back", start.Add(12*time.Minute)))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	st, _ := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, 12, st.TodayTotalBreakMinutes)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_PublisherFailureDoesNotFailCall(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})
	fx.publisher.err = errors.New("broker down")

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	resp, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", time.Now().UTC()))

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	fx.publisher.wait(t)

	st, _ := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.Equal(t, StatusActive, st.Status)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestProcessMessage_InvalidTenantID(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{Kind: classifier.KindCheckIn, Source: classifier.SourceRule})

	msg := fx.message("m-1", "✅ Available", time.Now())
	msg.TenantID = "not-a-uuid"

	_, err := fx.svc.ProcessMessage(context.Background(), msg)
	assert.Error(t, err)
}

func TestGetTeamStatus_ReturnsRowsWithNames(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", time.Now().UTC()))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	rows, err := fx.svc.GetTeamStatus(context.Background(), fx.tenantID.String())
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "Rina", rows[0].DisplayName)
	assert.Equal(t, StatusActive, rows[0].Status)
}

func TestGetUserHistory_DefaultsWindow(t *testing.T) {
	fx := newServiceFixture(t, classifier.Result{
		Kind:       classifier.KindCheckIn,
		Confidence: 0.95,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceRule,
	})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "✅ Available", time.Now().UTC()))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	hist, err := fx.svc.GetUserHistory(context.Background(), fx.tenantID.String(), fx.userID.String(), 0)
	assert.NoError(t, err)
	assert.Len(t, hist, 1)
	assert.Equal(t, "checkin", hist[0].Kind)
}

func TestResetDailyStats_ClearsCounters(t *testing.T) {
	fx := newServiceFixture(t, breakStartResult("lunch", 30))

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err := fx.svc.ProcessMessage(context.Background(), fx.message("m-1", "BRB - lunch, back in 30", time.Now().UTC()))
	assert.NoError(t, err)
	fx.publisher.wait(t)

	assert.NoError(t, fx.svc.ResetDailyStats(context.Background(), fx.tenantID.String()))

	st, _ := fx.status.FindByUser(context.Background(), fx.tenantID, fx.userID)
	assert.Zero(t, st.TodayBreakCount)
	assert.Zero(t, st.TodayTotalBreakMinutes)
	assert.Nil(t, st.TodayCheckInAt)
	// The break itself stays open; resets only clear daily counters.
	assert.Equal(t, StatusOnBreak, st.Status)
}
