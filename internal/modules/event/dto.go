package event

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateEventRequest struct {
	Title              string     `json:"title" binding:"required"`
	Description        string     `json:"description"`
	VenueName          string     `json:"venue_name"`
	VenueAddress       string     `json:"venue_address"`
	City               string     `json:"city"`
	StartAt            time.Time  `json:"start_at" binding:"required"`
	EndAt              time.Time  `json:"end_at" binding:"required"`
	RegistrationOpenAt *time.Time `json:"registration_open_at"`
	RegistrationEndAt  *time.Time `json:"registration_end_at"`
	MaxAttendees       int        `json:"max_attendees"`
	CancellationPolicy string     `json:"cancellation_policy"`
}

type UpdateEventRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	VenueName          *string    `json:"venue_name"`
	VenueAddress       *string    `json:"venue_address"`
	City               *string    `json:"city"`
	MaxAttendees       *int       `json:"max_attendees"`
	CancellationPolicy *string    `json:"cancellation_policy"`
	RegistrationOpenAt *time.Time `json:"registration_open_at"`
	RegistrationEndAt  *time.Time `json:"registration_end_at"`
}

type CreateTicketClassRequest struct {
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price" binding:"required"`
	QuantityAvailable int             `json:"quantity_available" binding:"required"`
	MinPerBooking     int             `json:"min_per_booking"`
	MaxPerBooking     int             `json:"max_per_booking"`
	IsTransferable    bool            `json:"is_transferable"`
	IsRefundable      bool            `json:"is_refundable"`
	SaleStartAt       *time.Time      `json:"sale_start_at"`
	SaleEndAt         *time.Time      `json:"sale_end_at"`
	EarlyBirdPercent  decimal.Decimal `json:"early_bird_percent"`
	EarlyBirdEndAt    *time.Time      `json:"early_bird_end_at"`
}
