package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketClassStatus string

const (
	TicketClassActive   TicketClassStatus = "active"
	TicketClassInactive TicketClassStatus = "inactive"
	TicketClassSoldOut  TicketClassStatus = "sold_out"
)

// TicketClass is the shared contention point: QuantityHeld tracks live
// reservations that are not yet sold, so the invariant the ledger
// enforces is sold + held <= available.
type TicketClass struct {
	ID                int64             `gorm:"primaryKey" json:"id"`
	EventID           int64             `gorm:"index;not null" json:"event_id"`
	Name              string            `gorm:"size:100;not null" json:"name"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	Price             decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"price"`
	QuantityAvailable int               `gorm:"not null" json:"quantity_available"`
	QuantitySold      int               `gorm:"default:0" json:"quantity_sold"`
	QuantityHeld      int               `gorm:"default:0" json:"quantity_held"`
	MinPerBooking     int               `gorm:"default:1" json:"min_per_booking"`
	MaxPerBooking     int               `gorm:"default:0" json:"max_per_booking"`
	IsTransferable    bool              `gorm:"default:true" json:"is_transferable"`
	IsRefundable      bool              `gorm:"default:true" json:"is_refundable"`
	SaleStartAt       *time.Time        `json:"sale_start_at,omitempty"`
	SaleEndAt         *time.Time        `json:"sale_end_at,omitempty"`
	Status            TicketClassStatus `gorm:"size:20;default:'active';index" json:"status"`
	EarlyBirdPercent  decimal.Decimal   `gorm:"type:decimal(5,2);default:0" json:"early_bird_percent"`
	EarlyBirdEndAt    *time.Time        `json:"early_bird_end_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (TicketClass) TableName() string { return "ticket_classes" }

func (tc *TicketClass) IsOnSale(t time.Time) bool {
	if tc.Status != TicketClassActive {
		return false
	}
	if tc.SaleStartAt != nil && t.Before(*tc.SaleStartAt) {
		return false
	}
	if tc.SaleEndAt != nil && !t.Before(*tc.SaleEndAt) {
		return false
	}
	return true
}

func (tc *TicketClass) Remaining() int {
	return tc.QuantityAvailable - tc.QuantitySold - tc.QuantityHeld
}

// EffectivePrice applies the early-bird discount while its window is
// active, otherwise returns the base price. Line items snapshot this
// value at reservation time.
func (tc *TicketClass) EffectivePrice(t time.Time) decimal.Decimal {
	if tc.EarlyBirdEndAt == nil || !t.Before(*tc.EarlyBirdEndAt) || tc.EarlyBirdPercent.IsZero() {
		return tc.Price
	}
	discount := tc.Price.Mul(tc.EarlyBirdPercent).Div(decimal.NewFromInt(100))
	return tc.Price.Sub(discount).Round(2)
}

// QuantityWithinLimits checks the per-booking bounds; MaxPerBooking of
// zero means unbounded.
func (tc *TicketClass) QuantityWithinLimits(q int) bool {
	if q < 1 || q < tc.MinPerBooking {
		return false
	}
	if tc.MaxPerBooking > 0 && q > tc.MaxPerBooking {
		return false
	}
	return true
}
