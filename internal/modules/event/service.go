// Package event holds organizer-facing event and ticket-class
// management. Bookings only read events; all mutation goes through
// here, with ownership checks reported through the shared error
// taxonomy.
package event

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/domain"
	"tickethub/internal/repository"
)

type Service struct {
	events  *repository.EventRepository
	classes *repository.TicketClassRepository
	now     func() time.Time
}

func NewService(events *repository.EventRepository, classes *repository.TicketClassRepository) *Service {
	return &Service{events: events, classes: classes, now: time.Now}
}

// ownedBy loads the event and enforces organizer ownership; admins
// bypass the check.
func (s *Service) ownedBy(ctx context.Context, eventID, userID int64, role domain.Role) (*domain.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != userID && role != domain.RoleAdmin {
		return nil, fmt.Errorf("event %d belongs to organizer %d: %w", e.ID, e.OrganizerID, domain.ErrPermissionDenied)
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, organizerID int64, req CreateEventRequest) (*domain.Event, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("event end must be after start: %w", domain.ErrMalformedInput)
	}
	e := &domain.Event{
		Title:              req.Title,
		Description:        req.Description,
		VenueName:          req.VenueName,
		VenueAddress:       req.VenueAddress,
		City:               req.City,
		Status:             domain.EventDraft,
		StartAt:            req.StartAt,
		EndAt:              req.EndAt,
		RegistrationOpenAt: req.RegistrationOpenAt,
		RegistrationEndAt:  req.RegistrationEndAt,
		MaxAttendees:       req.MaxAttendees,
		CancellationPolicy: req.CancellationPolicy,
		OrganizerID:        organizerID,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, eventID, userID int64, role domain.Role, req UpdateEventRequest) (*domain.Event, error) {
	e, err := s.ownedBy(ctx, eventID, userID, role)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.EventCancelled || e.Status == domain.EventCompleted {
		return nil, fmt.Errorf("event %d is %s and can no longer be edited: %w", e.ID, e.Status, domain.ErrInvalidState)
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.VenueName != nil {
		e.VenueName = *req.VenueName
	}
	if req.VenueAddress != nil {
		e.VenueAddress = *req.VenueAddress
	}
	if req.City != nil {
		e.City = *req.City
	}
	if req.MaxAttendees != nil {
		e.MaxAttendees = *req.MaxAttendees
	}
	if req.CancellationPolicy != nil {
		e.CancellationPolicy = *req.CancellationPolicy
	}
	if req.RegistrationOpenAt != nil {
		e.RegistrationOpenAt = req.RegistrationOpenAt
	}
	if req.RegistrationEndAt != nil {
		e.RegistrationEndAt = req.RegistrationEndAt
	}
	if err := s.events.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Publish makes a draft event bookable.
func (s *Service) Publish(ctx context.Context, eventID, userID int64, role domain.Role) (*domain.Event, error) {
	e, err := s.ownedBy(ctx, eventID, userID, role)
	if err != nil {
		return nil, err
	}
	if e.Status != domain.EventDraft {
		return nil, fmt.Errorf("only draft events can be published, event %d is %s: %w", e.ID, e.Status, domain.ErrInvalidState)
	}
	e.Status = domain.EventPublished
	if err := s.events.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Cancel(ctx context.Context, eventID, userID int64, role domain.Role) (*domain.Event, error) {
	e, err := s.ownedBy(ctx, eventID, userID, role)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.EventCancelled || e.Status == domain.EventCompleted {
		return nil, fmt.Errorf("event %d is already %s: %w", e.ID, e.Status, domain.ErrInvalidState)
	}
	e.Status = domain.EventCancelled
	if err := s.events.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, eventID int64) (*domain.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	return s.events.ListByOrganizer(ctx, organizerID)
}

func (s *Service) AddTicketClass(ctx context.Context, eventID, userID int64, role domain.Role, req CreateTicketClassRequest) (*domain.TicketClass, error) {
	e, err := s.ownedBy(ctx, eventID, userID, role)
	if err != nil {
		return nil, err
	}
	if req.QuantityAvailable < 1 {
		return nil, fmt.Errorf("ticket class needs positive capacity: %w", domain.ErrMalformedInput)
	}
	if req.MaxPerBooking > 0 && req.MaxPerBooking < req.MinPerBooking {
		return nil, fmt.Errorf("max per booking below min: %w", domain.ErrMalformedInput)
	}

	minPer := req.MinPerBooking
	if minPer < 1 {
		minPer = 1
	}
	tc := &domain.TicketClass{
		EventID:           e.ID,
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		QuantityAvailable: req.QuantityAvailable,
		MinPerBooking:     minPer,
		MaxPerBooking:     req.MaxPerBooking,
		IsTransferable:    req.IsTransferable,
		IsRefundable:      req.IsRefundable,
		SaleStartAt:       req.SaleStartAt,
		SaleEndAt:         req.SaleEndAt,
		Status:            domain.TicketClassActive,
		EarlyBirdPercent:  req.EarlyBirdPercent,
		EarlyBirdEndAt:    req.EarlyBirdEndAt,
	}
	if err := s.classes.Create(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

func (s *Service) ListTicketClasses(ctx context.Context, eventID int64) ([]domain.TicketClass, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.classes.ListByEvent(ctx, eventID)
}
