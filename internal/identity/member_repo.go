package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=member_repo.go -destination=mock/member_repo_mock.go -package=mock

// Resolver maps a chat-platform author id to an internal user id.
// A miss is returned as (nil, nil): the engine records the event with a
// null user and skips the status projection, it never fails the message.
type Resolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, externalID string) (*uuid.UUID, error)
}

// Repository is the read surface the engine and analytics need from the
// member table.
type Repository interface {
	Resolver
	DisplayNames(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Resolve(ctx context.Context, tenantID uuid.UUID, externalID string) (*uuid.UUID, error) {
	var m Member
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("external_id = ?", externalID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := m.ID
	return &id, nil
}

func (r *repository) DisplayNames(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]string, error) {
	var rows []Member
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(rows))
	for _, m := range rows {
		names[m.ID] = m.DisplayName
	}
	return names, nil
}
