package domain

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// Event is booking context: the lifecycle engine reads its registration
// window and attendee counters, organizer-facing CRUD lives in the event
// module. Ticket classes reference the event by id only.
type Event struct {
	ID                 int64       `gorm:"primaryKey" json:"id"`
	Title              string      `gorm:"size:200;not null" json:"title"`
	Description        string      `gorm:"type:text" json:"description,omitempty"`
	VenueName          string      `gorm:"size:200" json:"venue_name,omitempty"`
	VenueAddress       string      `gorm:"size:500" json:"venue_address,omitempty"`
	City               string      `gorm:"size:100" json:"city,omitempty"`
	Status             EventStatus `gorm:"size:20;default:'draft';index" json:"status"`
	StartAt            time.Time   `gorm:"not null" json:"start_at"`
	EndAt              time.Time   `gorm:"not null" json:"end_at"`
	RegistrationOpenAt *time.Time  `json:"registration_open_at,omitempty"`
	RegistrationEndAt  *time.Time  `json:"registration_end_at,omitempty"`
	MaxAttendees       int         `json:"max_attendees"`
	CurrentAttendees   int         `gorm:"default:0" json:"current_attendees"`
	CancellationPolicy string      `gorm:"type:text" json:"cancellation_policy,omitempty"`
	OrganizerID        int64       `gorm:"index;not null" json:"organizer_id"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (Event) TableName() string { return "events" }

// IsRegistrationOpen reports whether new bookings are accepted at t.
func (e *Event) IsRegistrationOpen(t time.Time) bool {
	if e.Status != EventPublished {
		return false
	}
	if e.RegistrationOpenAt != nil && t.Before(*e.RegistrationOpenAt) {
		return false
	}
	if e.RegistrationEndAt != nil && !t.Before(*e.RegistrationEndAt) {
		return false
	}
	return true
}

func (e *Event) IsSoldOut() bool {
	return e.MaxAttendees > 0 && e.CurrentAttendees >= e.MaxAttendees
}

// RefundsAllowed: refunds require the organizer to have published a
// cancellation policy for the event.
func (e *Event) RefundsAllowed() bool {
	return e.CancellationPolicy != ""
}
