package ticket

import (
	"fmt"
	"strconv"
	"strings"

	"tickethub/internal/domain"
)

// qrTag anchors the payload format; scanners reject anything that does
// not start with it.
const qrTag = "TICKETHUB"

// EncodePayload builds the pipe-delimited QR payload:
// TICKETHUB|bookingID|ticketID|code.
func EncodePayload(bookingID, ticketID int64, code string) string {
	return fmt.Sprintf("%s|%d|%d|%s", qrTag, bookingID, ticketID, code)
}

// DecodePayload parses a scanned payload back into its parts. Any
// structural defect maps to ErrMalformedInput; existence checks are the
// caller's job.
func DecodePayload(payload string) (bookingID, ticketID int64, code string, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 || parts[0] != qrTag {
		return 0, 0, "", fmt.Errorf("bad qr payload %q: %w", payload, domain.ErrMalformedInput)
	}
	bookingID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("bad booking id in qr payload: %w", domain.ErrMalformedInput)
	}
	ticketID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("bad ticket id in qr payload: %w", domain.ErrMalformedInput)
	}
	if parts[3] == "" {
		return 0, 0, "", fmt.Errorf("empty ticket code in qr payload: %w", domain.ErrMalformedInput)
	}
	return bookingID, ticketID, parts[3], nil
}
