package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tickethub/internal/domain"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx returns a copy bound to tx so event mutations can join a
// larger unit of work.
func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EventRepository) Save(ctx context.Context, e *domain.Event) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	var e domain.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	var out []domain.Event
	err := r.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// AddAttendees bumps current_attendees by delta (negative to release).
// The guard keeps the counter non-negative under concurrent cancels.
func (r *EventRepository) AddAttendees(ctx context.Context, eventID int64, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ? AND current_attendees + ? >= 0", eventID, delta).
		Update("current_attendees", gorm.Expr("current_attendees + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}
