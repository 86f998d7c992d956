package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tickethub/internal/domain"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByExternalOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("external_order_id = ?", orderID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// HasNonTerminal reports whether the booking already has a payment
// attempt in flight. At most one PENDING/PROCESSING payment may exist
// per booking.
func (r *PaymentRepository) HasNonTerminal(ctx context.Context, bookingID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentProcessing}).
		Count(&n).Error
	return n > 0, err
}

// Complete flips a PENDING/PROCESSING payment to COMPLETED. The
// conditional update is the arbiter of the verify/webhook race: exactly
// one caller observes changed=true and runs the side effects.
func (r *PaymentRepository) Complete(ctx context.Context, id int64, externalTxnID, rawResponse string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status IN ?", id,
			[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentProcessing}).
		Updates(map[string]interface{}{
			"status":           domain.PaymentCompleted,
			"external_txn_id":  externalTxnID,
			"gateway_response": rawResponse,
			"processed_at":     at,
			"net_amount":       gorm.Expr("amount - processing_fee"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Fail flips a PENDING/PROCESSING payment to FAILED; already-terminal
// payments are untouched.
func (r *PaymentRepository) Fail(ctx context.Context, id int64, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status IN ?", id,
			[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentProcessing}).
		Updates(map[string]interface{}{
			"status":         domain.PaymentFailed,
			"failure_reason": reason,
			"processed_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) RecordWebhook(ctx context.Context, id int64, payload string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"webhook_payload":     payload,
			"webhook_received_at": at,
		}).Error
}

// ApplyRefund accumulates a refund on a COMPLETED or PARTIALLY_REFUNDED
// payment. The guard rejects refunds that would exceed the captured
// amount even under concurrent attempts.
func (r *PaymentRepository) ApplyRefund(ctx context.Context, id int64, amount decimal.Decimal, reason, rawResponse string, at time.Time) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&domain.Payment{}).
			Where("id = ? AND status IN ? AND refund_amount + ? <= amount", id,
				[]domain.PaymentStatus{domain.PaymentCompleted, domain.PaymentPartiallyRefunded},
				amount).
			Updates(map[string]interface{}{
				"refund_amount":    gorm.Expr("refund_amount + ?", amount),
				"refund_reason":    reason,
				"gateway_response": rawResponse,
				"refunded_at":      at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidState
		}

		var p domain.Payment
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		status := domain.PaymentPartiallyRefunded
		if p.RefundAmount.GreaterThanOrEqual(p.Amount) {
			status = domain.PaymentRefunded
		}
		if err := tx.Model(&domain.Payment{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return err
		}
		p.Status = status
		out = &p
		return nil
	})
	return out, err
}

// CancelNonTerminalByBooking voids in-flight payment attempts when the
// booking itself expires or is cancelled.
func (r *PaymentRepository) CancelNonTerminalByBooking(ctx context.Context, bookingID int64, reason string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentProcessing}).
		Updates(map[string]interface{}{
			"status":         domain.PaymentCancelled,
			"failure_reason": reason,
		}).Error
}
