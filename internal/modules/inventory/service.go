// Package inventory is the ledger for ticket-class capacity. A
// reservation holds units without selling them; commit converts held
// units to sold, release returns them to the pool. All counter math is
// guarded conditional UPDATEs checked through RowsAffected, so the
// invariant sold + held <= available survives arbitrary interleavings
// without row locks, and operations on different classes never block
// each other.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tickethub/internal/domain"
	"tickethub/internal/monitoring"
	"tickethub/internal/pkg/refgen"
)

type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithTx binds the ledger to an open transaction so commits and
// releases can join a booking's unit of work.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, now: l.now}
}

// Reserve places a hold of quantity units on the ticket class. It fails
// with ErrInvalidState when the class is not on sale or the quantity is
// outside the per-booking bounds, and ErrInsufficientInventory when the
// remaining capacity cannot cover the hold.
func (l *Ledger) Reserve(ctx context.Context, ticketClassID int64, quantity int) (*domain.Reservation, error) {
	var tc domain.TicketClass
	if err := l.db.WithContext(ctx).First(&tc, ticketClassID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	now := l.now()
	if !tc.IsOnSale(now) {
		return nil, fmt.Errorf("ticket class %d is not on sale: %w", ticketClassID, domain.ErrInvalidState)
	}
	if !tc.QuantityWithinLimits(quantity) {
		return nil, fmt.Errorf("quantity %d outside per-booking limits: %w", quantity, domain.ErrInvalidState)
	}

	res := &domain.Reservation{
		ID:            refgen.ReservationID(),
		TicketClassID: ticketClassID,
		Quantity:      quantity,
		Status:        domain.ReservationHeld,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&domain.TicketClass{}).
			Where("id = ? AND quantity_sold + quantity_held + ? <= quantity_available", ticketClassID, quantity).
			Update("quantity_held", gorm.Expr("quantity_held + ?", quantity))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return domain.ErrInsufficientInventory
		}
		return tx.Create(res).Error
	})
	if err != nil {
		monitoring.ReservationResult("rejected")
		return nil, err
	}
	monitoring.ReservationResult("held")
	return res, nil
}

// Commit converts a held reservation into sold units. Committing an
// already-committed reservation is a no-op; committing a released one
// fails, because its units are back in the pool.
func (l *Ledger) Commit(ctx context.Context, reservationID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res domain.Reservation
		if err := tx.First(&res, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		flip := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", reservationID, domain.ReservationHeld).
			Update("status", domain.ReservationCommitted)
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			if res.Status == domain.ReservationCommitted {
				return nil
			}
			return fmt.Errorf("reservation %s already released: %w", reservationID, domain.ErrInvalidState)
		}

		return tx.Model(&domain.TicketClass{}).
			Where("id = ? AND quantity_held >= ?", res.TicketClassID, res.Quantity).
			Updates(map[string]interface{}{
				"quantity_sold": gorm.Expr("quantity_sold + ?", res.Quantity),
				"quantity_held": gorm.Expr("quantity_held - ?", res.Quantity),
			}).Error
	})
}

// Release returns a reservation's units to the pool. A held reservation
// gives back its hold; a committed one decrements sold (the cancel-
// after-confirm path). Releasing an already-released reservation is a
// no-op.
func (l *Ledger) Release(ctx context.Context, reservationID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res domain.Reservation
		if err := tx.First(&res, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		fromHeld := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", reservationID, domain.ReservationHeld).
			Update("status", domain.ReservationReleased)
		if fromHeld.Error != nil {
			return fromHeld.Error
		}
		if fromHeld.RowsAffected > 0 {
			monitoring.ReservationResult("released")
			return tx.Model(&domain.TicketClass{}).
				Where("id = ? AND quantity_held >= ?", res.TicketClassID, res.Quantity).
				Update("quantity_held", gorm.Expr("quantity_held - ?", res.Quantity)).Error
		}

		fromCommitted := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", reservationID, domain.ReservationCommitted).
			Update("status", domain.ReservationReleased)
		if fromCommitted.Error != nil {
			return fromCommitted.Error
		}
		if fromCommitted.RowsAffected > 0 {
			monitoring.ReservationResult("released")
			return tx.Model(&domain.TicketClass{}).
				Where("id = ? AND quantity_sold >= ?", res.TicketClassID, res.Quantity).
				Update("quantity_sold", gorm.Expr("quantity_sold - ?", res.Quantity)).Error
		}

		// already released
		return nil
	})
}
