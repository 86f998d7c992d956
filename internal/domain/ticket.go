package domain

import "time"

type TicketStatus string

const (
	TicketActive      TicketStatus = "ACTIVE"
	TicketUsed        TicketStatus = "USED"
	TicketCancelled   TicketStatus = "CANCELLED"
	TicketTransferred TicketStatus = "TRANSFERRED"
	TicketExpired     TicketStatus = "EXPIRED"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketActive: {TicketUsed, TicketCancelled, TicketTransferred, TicketExpired},
}

func (s TicketStatus) CanTransition(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Ticket exists only once its booking is CONFIRMED: one row per unit of
// booking-line quantity, minted inside the confirmation transaction.
type Ticket struct {
	ID             int64        `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"uniqueIndex;size:100;not null" json:"code"`
	QRPayload      string       `gorm:"uniqueIndex;size:255;not null" json:"qr_payload"`
	Status         TicketStatus `gorm:"size:20;not null;index" json:"status"`
	SeatNumber     string       `gorm:"size:20" json:"seat_number,omitempty"`
	Section        string       `gorm:"size:50" json:"section,omitempty"`
	RowNumber      string       `gorm:"size:20" json:"row_number,omitempty"`
	UsedAt         *time.Time   `json:"used_at,omitempty"`
	UsedBy         string       `gorm:"size:100" json:"used_by,omitempty"`
	TransferToUser int64        `json:"transfer_to_user,omitempty"`
	TransferredAt  *time.Time   `json:"transferred_at,omitempty"`
	TransferNotes  string       `gorm:"type:text" json:"transfer_notes,omitempty"`
	BookingID      int64        `gorm:"index;not null" json:"booking_id"`
	TicketClassID  int64        `gorm:"index;not null" json:"ticket_class_id"`
	UserID         int64        `gorm:"index;not null" json:"user_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (Ticket) TableName() string { return "tickets" }
