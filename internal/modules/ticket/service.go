// Package ticket mints and validates admission tickets. Tickets only
// exist for CONFIRMED bookings; issuance happens inside the
// confirmation transaction so a booking can never be confirmed with a
// partial ticket set.
package ticket

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tickethub/internal/domain"
	"tickethub/internal/monitoring"
	"tickethub/internal/pkg/refgen"
	"tickethub/internal/repository"
)

type Service struct {
	db       *gorm.DB
	tickets  *repository.TicketRepository
	bookings *repository.BookingRepository
	classes  *repository.TicketClassRepository
	now      func() time.Time
}

func NewService(db *gorm.DB, tickets *repository.TicketRepository, bookings *repository.BookingRepository, classes *repository.TicketClassRepository) *Service {
	return &Service{
		db:       db,
		tickets:  tickets,
		bookings: bookings,
		classes:  classes,
		now:      time.Now,
	}
}

// IssueFor mints one ticket per unit of every booking line, inside the
// caller's transaction. The QR payload embeds the ticket's own id, so
// each row is created first and the payload written once the id is
// known.
func (s *Service) IssueFor(ctx context.Context, tx *gorm.DB, b *domain.Booking, lines []domain.BookingLine) ([]domain.Ticket, error) {
	repo := s.tickets.WithTx(tx)
	var issued []domain.Ticket
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			code := refgen.TicketCode()
			t := domain.Ticket{
				Code:          code,
				QRPayload:     code, // placeholder until the id exists
				Status:        domain.TicketActive,
				BookingID:     b.ID,
				TicketClassID: line.TicketClassID,
				UserID:        b.UserID,
			}
			if err := repo.Create(ctx, &t); err != nil {
				return nil, fmt.Errorf("create ticket: %w", err)
			}
			payload := EncodePayload(b.ID, t.ID, code)
			if err := repo.SetQRPayload(ctx, t.ID, payload); err != nil {
				return nil, fmt.Errorf("set qr payload: %w", err)
			}
			t.QRPayload = payload
			issued = append(issued, t)
		}
	}
	monitoring.TicketsIssued(len(issued))
	return issued, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

func (s *Service) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	return s.tickets.ListByBooking(ctx, bookingID)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

// Validate resolves a scanned payload to its ticket and checks it is
// usable: the payload decodes, the ticket exists and carries the same
// code, the ticket is ACTIVE, and its booking is CONFIRMED or already
// CHECKED_IN.
func (s *Service) Validate(ctx context.Context, payload string) (*domain.Ticket, error) {
	bookingID, ticketID, code, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Code != code || t.BookingID != bookingID {
		return nil, fmt.Errorf("qr payload does not match ticket %d: %w", ticketID, domain.ErrNotFound)
	}
	if t.Status != domain.TicketActive {
		return nil, fmt.Errorf("ticket %d is %s: %w", t.ID, t.Status, domain.ErrInvalidState)
	}
	b, err := s.bookings.GetByID(ctx, t.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed && b.Status != domain.BookingCheckedIn {
		return nil, fmt.Errorf("booking %s is %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
	return t, nil
}

// Redeem validates a scanned payload and marks the ticket USED. The
// flip is a conditional update, so two gates scanning the same ticket
// admit it exactly once.
func (s *Service) Redeem(ctx context.Context, payload, gate string) (*domain.Ticket, error) {
	t, err := s.Validate(ctx, payload)
	if err != nil {
		return nil, err
	}
	changed, err := s.tickets.MarkUsed(ctx, t.ID, gate, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("ticket %d already redeemed: %w", t.ID, domain.ErrInvalidState)
	}
	return s.tickets.GetByID(ctx, t.ID)
}

// Transfer hands an ACTIVE ticket to another user: the original row is
// marked TRANSFERRED and a fresh ticket with a new code is minted for
// the recipient, invalidating the old QR payload.
func (s *Service) Transfer(ctx context.Context, ticketID, fromUserID, toUserID int64, notes string) (*domain.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != fromUserID {
		return nil, fmt.Errorf("ticket %d is not owned by user %d: %w", ticketID, fromUserID, domain.ErrPermissionDenied)
	}
	tc, err := s.classes.GetByID(ctx, t.TicketClassID)
	if err != nil {
		return nil, err
	}
	if !tc.IsTransferable {
		return nil, fmt.Errorf("ticket class %q is not transferable: %w", tc.Name, domain.ErrInvalidState)
	}

	var replacement *domain.Ticket
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tickets.WithTx(tx)
		changed, err := repo.Transfer(ctx, ticketID, toUserID, notes, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("ticket %d is no longer transferable: %w", ticketID, domain.ErrInvalidState)
		}

		code := refgen.TicketCode()
		nt := domain.Ticket{
			Code:          code,
			QRPayload:     code,
			Status:        domain.TicketActive,
			SeatNumber:    t.SeatNumber,
			Section:       t.Section,
			RowNumber:     t.RowNumber,
			BookingID:     t.BookingID,
			TicketClassID: t.TicketClassID,
			UserID:        toUserID,
		}
		if err := repo.Create(ctx, &nt); err != nil {
			return err
		}
		payload := EncodePayload(nt.BookingID, nt.ID, code)
		if err := repo.SetQRPayload(ctx, nt.ID, payload); err != nil {
			return err
		}
		nt.QRPayload = payload
		replacement = &nt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}
