package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tickethub/internal/domain"
)

type TicketClassRepository struct {
	db *gorm.DB
}

func NewTicketClassRepository(db *gorm.DB) *TicketClassRepository {
	return &TicketClassRepository{db: db}
}

func (r *TicketClassRepository) Create(ctx context.Context, tc *domain.TicketClass) error {
	return r.db.WithContext(ctx).Create(tc).Error
}

func (r *TicketClassRepository) Save(ctx context.Context, tc *domain.TicketClass) error {
	return r.db.WithContext(ctx).Save(tc).Error
}

func (r *TicketClassRepository) GetByID(ctx context.Context, id int64) (*domain.TicketClass, error) {
	var tc domain.TicketClass
	if err := r.db.WithContext(ctx).First(&tc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tc, nil
}

func (r *TicketClassRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.TicketClass, error) {
	var out []domain.TicketClass
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
