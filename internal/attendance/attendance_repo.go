package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// breakStartMatchWindow tolerates clock skew between the status row's
// lastBreakStartAt and the persisted break-start event time.
const breakStartMatchWindow = time.Minute

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, e *Event) error
	FindByMessage(ctx context.Context, tenantID uuid.UUID, channelID, messageID string) (*Event, error)
	FindBreakStartNear(ctx context.Context, tenantID, userID uuid.UUID, around time.Time) (*Event, error)
	SetActualDuration(ctx context.Context, id uuid.UUID, minutes int) error
	ListByUserSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time) ([]Event, error)
	ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) FindByMessage(ctx context.Context, tenantID uuid.UUID, channelID, messageID string) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("channel_id = ?", channelID).
		Where("message_id = ?", messageID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindBreakStartNear returns the most recent break_start event for the
// user within the match window around the given time.
func (r *repository) FindBreakStartNear(ctx context.Context, tenantID, userID uuid.UUID, around time.Time) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("kind = ?", "break_start").
		Where("event_time >= ?", around.Add(-breakStartMatchWindow)).
		Where("event_time <= ?", around.Add(breakStartMatchWindow)).
		Order("event_time DESC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) SetActualDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	return r.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ?", id).
		Update("actual_duration_minutes", minutes).Error
}

func (r *repository) ListByUserSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time) ([]Event, error) {
	var rows []Event
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("event_time >= ?", since).
		Order("event_time DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Event, error) {
	var rows []Event
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("event_time >= ?", since).
		Order("event_time ASC").
		Find(&rows).Error
	return rows, err
}
