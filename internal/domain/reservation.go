package domain

import "time"

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is a provisional claim on ticket-class inventory. It is
// persisted so commit and release can be replayed safely: transitions
// out of "held" are conditional updates, and re-committing a committed
// reservation (or re-releasing a released one) is a no-op.
type Reservation struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	TicketClassID int64             `gorm:"index;not null" json:"ticket_class_id"`
	Quantity      int               `gorm:"not null" json:"quantity"`
	Status        ReservationStatus `gorm:"size:20;default:'held';index" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (Reservation) TableName() string { return "reservations" }
