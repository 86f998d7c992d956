// Package booking owns the booking lifecycle: creation with atomic
// inventory holds, confirmation on payment success, cancellation,
// check-in and the expiry sweep. Every status change goes through a
// conditional transition in the repository, so concurrent actors (user,
// webhook, sweeper) converge instead of clobbering each other.
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tickethub/internal/domain"
	"tickethub/internal/modules/inventory"
	"tickethub/internal/monitoring"
	"tickethub/internal/pkg/refgen"
	"tickethub/internal/repository"
)

// Policy holds the pricing constants applied on top of the ticket
// subtotal.
type Policy struct {
	ServiceFeePercent decimal.Decimal
	TaxPercent        decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		ServiceFeePercent: decimal.NewFromInt(2),
		TaxPercent:        decimal.NewFromInt(18),
	}
}

type Service struct {
	db       *gorm.DB
	bookings *repository.BookingRepository
	events   *repository.EventRepository
	classes  *repository.TicketClassRepository
	payments *repository.PaymentRepository
	ledger   *inventory.Ledger
	issuer   TicketIssuer
	notifier Notifier
	refunds  RefundProcessor
	policy   Policy
	currency string
	now      func() time.Time
}

func NewService(
	db *gorm.DB,
	bookings *repository.BookingRepository,
	events *repository.EventRepository,
	classes *repository.TicketClassRepository,
	payments *repository.PaymentRepository,
	ledger *inventory.Ledger,
	issuer TicketIssuer,
	notifier Notifier,
	policy Policy,
	currency string,
) *Service {
	return &Service{
		db:       db,
		bookings: bookings,
		events:   events,
		classes:  classes,
		payments: payments,
		ledger:   ledger,
		issuer:   issuer,
		notifier: notifier,
		policy:   policy,
		currency: currency,
		now:      time.Now,
	}
}

// SetRefundProcessor wires the payment orchestrator in after both
// services exist; they depend on each other.
func (s *Service) SetRefundProcessor(rp RefundProcessor) {
	s.refunds = rp
}

func (s *Service) percentOf(base decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// Create reserves inventory for every requested line and persists a
// PENDING booking with its price snapshot. Reservations are
// all-or-nothing: if any line fails, every hold acquired so far is
// released before the error is returned.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*domain.Booking, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("booking needs at least one line: %w", domain.ErrMalformedInput)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !event.IsRegistrationOpen(now) {
		return nil, fmt.Errorf("registration for event %d is closed: %w", event.ID, domain.ErrInvalidState)
	}
	if event.IsSoldOut() {
		return nil, fmt.Errorf("event %d is sold out: %w", event.ID, domain.ErrInsufficientInventory)
	}

	var (
		reservations []*domain.Reservation
		lines        []domain.BookingLine
		total        = decimal.Zero
		discount     = decimal.Zero
	)
	releaseAll := func() {
		for _, res := range reservations {
			if err := s.ledger.Release(ctx, res.ID); err != nil {
				log.Printf("level=error msg=\"release reservation after failed create\" reservation=%s err=%v", res.ID, err)
			}
		}
	}

	for _, lr := range req.Lines {
		tc, err := s.classes.GetByID(ctx, lr.TicketClassID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		if tc.EventID != event.ID {
			releaseAll()
			return nil, fmt.Errorf("ticket class %d does not belong to event %d: %w", tc.ID, event.ID, domain.ErrMalformedInput)
		}
		res, err := s.ledger.Reserve(ctx, tc.ID, lr.Quantity)
		if err != nil {
			releaseAll()
			return nil, err
		}
		reservations = append(reservations, res)

		qty := decimal.NewFromInt(int64(lr.Quantity))
		unit := tc.EffectivePrice(now)
		lineDiscount := tc.Price.Sub(unit).Mul(qty)
		lines = append(lines, domain.BookingLine{
			TicketClassID: tc.ID,
			ReservationID: res.ID,
			Quantity:      lr.Quantity,
			UnitPrice:     unit,
			Discount:      lineDiscount,
			TotalPrice:    unit.Mul(qty),
		})
		total = total.Add(tc.Price.Mul(qty))
		discount = discount.Add(lineDiscount)
	}

	subtotal := total.Sub(discount)
	b := &domain.Booking{
		Reference:      refgen.BookingRef(),
		Status:         domain.BookingPending,
		TotalAmount:    total,
		DiscountAmount: discount,
		TaxAmount:      s.percentOf(subtotal, s.policy.TaxPercent),
		ServiceFee:     s.percentOf(subtotal, s.policy.ServiceFeePercent),
		Currency:       s.currency,
		Notes:          req.Notes,
		UserID:         userID,
		EventID:        event.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		if err := repo.Create(ctx, b); err != nil {
			if repository.IsDuplicateKey(err) {
				b.Reference = refgen.BookingRef()
				err = repo.Create(ctx, b)
			}
			if err != nil {
				return err
			}
		}
		for i := range lines {
			lines[i].BookingID = b.ID
		}
		return repo.CreateLines(ctx, lines)
	})
	if err != nil {
		releaseAll()
		return nil, err
	}

	monitoring.BookingTransition(string(domain.BookingPending))
	log.Printf("level=info msg=\"booking created\" reference=%s user=%d event=%d net=%s", b.Reference, userID, event.ID, b.NetAmount())
	return b, nil
}

// Confirm moves a PENDING booking to CONFIRMED: commits every held
// reservation, bumps the event attendee count and mints tickets, all in
// one transaction keyed on the status flip. Confirming an already
// CONFIRMED booking is a no-op, so duplicate payment callbacks are
// harmless.
func (s *Service) Confirm(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.BookingConfirmed {
		return b, nil
	}
	if !b.Status.CanTransition(domain.BookingConfirmed) {
		return nil, fmt.Errorf("cannot confirm booking %s from %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		changed, err := repo.TransitionStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingConfirmed, nil)
		if err != nil {
			return err
		}
		if !changed {
			// lost the race; the caller re-reads below
			return nil
		}

		lines, err := repo.GetLines(ctx, b.ID)
		if err != nil {
			return err
		}
		ledger := s.ledger.WithTx(tx)
		totalQty := 0
		for _, line := range lines {
			if err := ledger.Commit(ctx, line.ReservationID); err != nil {
				return fmt.Errorf("commit reservation %s: %w", line.ReservationID, err)
			}
			totalQty += line.Quantity
		}
		if err := s.events.WithTx(tx).AddAttendees(ctx, b.EventID, totalQty); err != nil {
			return fmt.Errorf("increment attendees: %w", err)
		}
		if _, err := s.issuer.IssueFor(ctx, tx, b, lines); err != nil {
			return fmt.Errorf("issue tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b, err = s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed {
		return nil, fmt.Errorf("booking %s moved to %s during confirmation: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}

	monitoring.BookingTransition(string(domain.BookingConfirmed))
	log.Printf("level=info msg=\"booking confirmed\" reference=%s", b.Reference)
	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, b)
	}
	return b, nil
}

// Cancel releases the booking's inventory and voids its tickets and
// in-flight payments. Allowed from PENDING or CONFIRMED while the
// event's registration window is still open; cancelling a CONFIRMED
// booking also returns its attendee count.
func (s *Service) Cancel(ctx context.Context, bookingID int64, reason string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(domain.BookingCancelled) {
		return nil, fmt.Errorf("cannot cancel booking %s from %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
	event, err := s.events.GetByID(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsRegistrationOpen(s.now()) {
		return nil, fmt.Errorf("registration for event %d has closed, booking %s can no longer be cancelled: %w", event.ID, b.Reference, domain.ErrInvalidState)
	}

	wasConfirmed := b.Status == domain.BookingConfirmed
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		changed, err := repo.TransitionStatus(ctx, b.ID,
			[]domain.BookingStatus{b.Status},
			domain.BookingCancelled,
			map[string]interface{}{
				"cancellation_reason": reason,
				"cancelled_at":        s.now(),
			})
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("booking %s changed state concurrently: %w", b.Reference, domain.ErrInvalidState)
		}

		lines, err := repo.GetLines(ctx, b.ID)
		if err != nil {
			return err
		}
		ledger := s.ledger.WithTx(tx)
		totalQty := 0
		for _, line := range lines {
			if err := ledger.Release(ctx, line.ReservationID); err != nil {
				return fmt.Errorf("release reservation %s: %w", line.ReservationID, err)
			}
			totalQty += line.Quantity
		}
		if wasConfirmed {
			if err := s.events.WithTx(tx).AddAttendees(ctx, b.EventID, -totalQty); err != nil {
				return fmt.Errorf("decrement attendees: %w", err)
			}
			if err := repository.NewTicketRepository(tx).CancelActiveByBooking(ctx, b.ID); err != nil {
				return fmt.Errorf("cancel tickets: %w", err)
			}
		}
		return s.payments.WithTx(tx).CancelNonTerminalByBooking(ctx, b.ID, "booking cancelled")
	})
	if err != nil {
		return nil, err
	}

	b, err = s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	monitoring.BookingTransition(string(domain.BookingCancelled))
	log.Printf("level=info msg=\"booking cancelled\" reference=%s reason=%q", b.Reference, reason)
	if s.notifier != nil {
		s.notifier.BookingCancelled(ctx, b)
	}
	return b, nil
}

// CheckIn admits the whole booking: flips CONFIRMED to CHECKED_IN and
// marks every ACTIVE ticket used.
func (s *Service) CheckIn(ctx context.Context, bookingID int64, by string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		changed, err := repo.TransitionStatus(ctx, b.ID,
			[]domain.BookingStatus{domain.BookingConfirmed},
			domain.BookingCheckedIn,
			map[string]interface{}{"check_in_at": now})
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("cannot check in booking %s from %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
		}
		return repository.NewTicketRepository(tx).MarkAllUsedByBooking(ctx, b.ID, by, now)
	})
	if err != nil {
		return nil, err
	}
	monitoring.BookingTransition(string(domain.BookingCheckedIn))
	return s.bookings.GetByID(ctx, bookingID)
}

// MarkNoShow records that a CONFIRMED booking never checked in; an
// organizer housekeeping action after the event ends.
func (s *Service) MarkNoShow(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	changed, err := s.bookings.TransitionStatus(ctx, bookingID,
		[]domain.BookingStatus{domain.BookingConfirmed}, domain.BookingNoShow, nil)
	if err != nil {
		return nil, err
	}
	if !changed {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("cannot mark booking %s no-show from %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
	monitoring.BookingTransition(string(domain.BookingNoShow))
	return s.bookings.GetByID(ctx, bookingID)
}

// Refund sends the money back for a CANCELLED booking. The event must
// publish a cancellation policy; the monetary movement is delegated to
// the payment orchestrator, which flips the booking to REFUNDED once
// the payment is fully refunded.
func (s *Service) Refund(ctx context.Context, bookingID int64, reason string) (*domain.Booking, error) {
	if s.refunds == nil {
		return nil, fmt.Errorf("refund processor not configured")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(domain.BookingRefunded) {
		return nil, fmt.Errorf("cannot refund booking %s from %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
	event, err := s.events.GetByID(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	if !event.RefundsAllowed() {
		return nil, fmt.Errorf("event %d has no cancellation policy: %w", event.ID, domain.ErrInvalidState)
	}

	payments, err := s.payments.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	var target *domain.Payment
	for i := range payments {
		p := payments[i]
		if p.Status == domain.PaymentCompleted || p.Status == domain.PaymentPartiallyRefunded {
			target = &p
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("booking %s has no refundable payment: %w", b.Reference, domain.ErrInvalidState)
	}

	if _, err := s.refunds.Refund(ctx, target.ID, target.RemainingRefundable(), reason); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, bookingID)
}

// ExpireStale reclaims inventory from PENDING bookings older than
// olderThan. Safe to run repeatedly and concurrently with user actions:
// the conditional transition means a confirmation landing first simply
// wins.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.bookings.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range stale {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.bookings.WithTx(tx)
			changed, err := repo.TransitionStatus(ctx, b.ID,
				[]domain.BookingStatus{domain.BookingPending}, domain.BookingExpired, nil)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			lines, err := repo.GetLines(ctx, b.ID)
			if err != nil {
				return err
			}
			ledger := s.ledger.WithTx(tx)
			for _, line := range lines {
				if err := ledger.Release(ctx, line.ReservationID); err != nil {
					return fmt.Errorf("release reservation %s: %w", line.ReservationID, err)
				}
			}
			if err := s.payments.WithTx(tx).CancelNonTerminalByBooking(ctx, b.ID, "booking expired"); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			log.Printf("level=error msg=\"expire booking\" reference=%s err=%v", b.Reference, err)
		}
	}
	if expired > 0 {
		monitoring.BookingsExpired(expired)
		log.Printf("level=info msg=\"expired stale bookings\" count=%d cutoff=%s", expired, cutoff.Format(time.RFC3339))
	}
	return expired, nil
}

func (s *Service) Get(ctx context.Context, bookingID int64) (*domain.Booking, []domain.BookingLine, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.bookings.GetLines(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}
	return b, lines, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}
