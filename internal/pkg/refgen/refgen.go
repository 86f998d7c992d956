// Package refgen produces human-readable identifiers for bookings,
// payments and tickets. Suffixes are derived from random UUIDs rather
// than wall-clock time, so concurrent generation cannot collide on the
// same millisecond; the repositories still back this with a unique
// index and retry once on conflict.
package refgen

import (
	"encoding/base32"
	"fmt"

	"github.com/google/uuid"
)

const (
	bookingPrefix = "BKG"
	paymentPrefix = "PAY"
	ticketPrefix  = "TKT"
)

// no padding, Crockford-ish uppercase output
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func suffix(n int) string {
	id := uuid.New()
	s := encoding.EncodeToString(id[:])
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

func BookingRef() string {
	return fmt.Sprintf("%s-%s", bookingPrefix, suffix(10))
}

func PaymentRef() string {
	return fmt.Sprintf("%s-%s", paymentPrefix, suffix(12))
}

func TicketCode() string {
	return fmt.Sprintf("%s-%s", ticketPrefix, suffix(12))
}

// ReservationID returns a plain UUID string; reservations are internal
// and never shown to customers.
func ReservationID() string {
	return uuid.NewString()
}
