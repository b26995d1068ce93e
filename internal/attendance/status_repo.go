package attendance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=status_repo.go -destination=mock/status_repo_mock.go -package=mock
type StatusRepository interface {
	WithTx(tx *gorm.DB) StatusRepository
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*UserStatus, error)
	Save(ctx context.Context, st *UserStatus) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]UserStatus, error)
	ResetDaily(ctx context.Context, tenantID uuid.UUID) error
	ResetDailyAll(ctx context.Context) error
}

type statusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) WithTx(tx *gorm.DB) StatusRepository {
	return &statusRepository{db: tx}
}

func (r *statusRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*UserStatus, error) {
	var st UserStatus
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		First(&st).Error
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *statusRepository) Save(ctx context.Context, st *UserStatus) error {
	return r.db.WithContext(ctx).Save(st).Error
}

func (r *statusRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]UserStatus, error) {
	var rows []UserStatus
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, err
}

// ResetDaily zeroes the per-day counters for one tenant. Scheduled
// externally at the start of each day.
func (r *statusRepository) ResetDaily(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&UserStatus{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"today_check_in_at":         nil,
			"today_break_count":         0,
			"today_total_break_minutes": 0,
		}).Error
}

func (r *statusRepository) ResetDailyAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&UserStatus{}).
		Where("1 = 1").
		Updates(map[string]interface{}{
			"today_check_in_at":         nil,
			"today_break_count":         0,
			"today_total_break_minutes": 0,
		}).Error
}
