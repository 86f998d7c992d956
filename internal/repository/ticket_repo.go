package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tickethub/internal/domain"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) WithTx(tx *gorm.DB) *TicketRepository {
	return &TicketRepository{db: tx}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TicketRepository) SetQRPayload(ctx context.Context, id int64, payload string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ?", id).
		Update("qr_payload", payload).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

func (r *TicketRepository) CountByBooking(ctx context.Context, bookingID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("booking_id = ?", bookingID).
		Count(&n).Error
	return n, err
}

// MarkUsed flips an ACTIVE ticket to USED; the guard makes double scans
// a detectable no-op.
func (r *TicketRepository) MarkUsed(ctx context.Context, id int64, by string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ? AND status = ?", id, domain.TicketActive).
		Updates(map[string]interface{}{
			"status":  domain.TicketUsed,
			"used_at": at,
			"used_by": by,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TicketRepository) MarkAllUsedByBooking(ctx context.Context, bookingID int64, by string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("booking_id = ? AND status = ?", bookingID, domain.TicketActive).
		Updates(map[string]interface{}{
			"status":  domain.TicketUsed,
			"used_at": at,
			"used_by": by,
		}).Error
}

func (r *TicketRepository) Transfer(ctx context.Context, id, toUserID int64, notes string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ? AND status = ?", id, domain.TicketActive).
		Updates(map[string]interface{}{
			"status":           domain.TicketTransferred,
			"transfer_to_user": toUserID,
			"transferred_at":   at,
			"transfer_notes":   notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TicketRepository) CancelActiveByBooking(ctx context.Context, bookingID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("booking_id = ? AND status = ?", bookingID, domain.TicketActive).
		Update("status", domain.TicketCancelled).Error
}
