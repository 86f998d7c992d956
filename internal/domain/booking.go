package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRefunded  BookingStatus = "REFUNDED"
	BookingCheckedIn BookingStatus = "CHECKED_IN"
	BookingNoShow    BookingStatus = "NO_SHOW"
	BookingExpired   BookingStatus = "EXPIRED"
)

// bookingTransitions is the single source of truth for booking
// lifecycle legality. Every operation goes through CanTransition
// instead of ad-hoc status predicates.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled, BookingExpired},
	BookingConfirmed: {BookingCancelled, BookingCheckedIn, BookingNoShow},
	BookingCancelled: {BookingRefunded},
}

func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

type Booking struct {
	ID                 int64           `gorm:"primaryKey" json:"id"`
	Reference          string          `gorm:"uniqueIndex;size:50;not null" json:"reference"`
	Status             BookingStatus   `gorm:"size:20;not null;index" json:"status"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"discount_amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"tax_amount"`
	ServiceFee         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"service_fee"`
	Currency           string          `gorm:"size:3;default:'INR'" json:"currency"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	CancellationReason string          `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CheckInAt          *time.Time      `json:"check_in_at,omitempty"`
	RefundedAt         *time.Time      `json:"refunded_at,omitempty"`
	UserID             int64           `gorm:"index;not null" json:"user_id"`
	EventID            int64           `gorm:"index;not null" json:"event_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// NetAmount is the amount the customer pays: total minus discount plus
// tax plus service fee.
func (b *Booking) NetAmount() decimal.Decimal {
	return b.TotalAmount.Sub(b.DiscountAmount).Add(b.TaxAmount).Add(b.ServiceFee)
}

// BookingLine is an immutable snapshot of one ticket-class purchase
// within a booking. UnitPrice captures the effective price at
// reservation time and never tracks later price edits.
type BookingLine struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	BookingID     int64           `gorm:"index;not null" json:"booking_id"`
	TicketClassID int64           `gorm:"index;not null" json:"ticket_class_id"`
	ReservationID string          `gorm:"size:36;not null" json:"reservation_id"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"discount"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (BookingLine) TableName() string { return "booking_lines" }
