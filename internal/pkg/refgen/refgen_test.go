package refgen

import (
	"strings"
	"testing"
)

func TestBookingRefShape(t *testing.T) {
	ref := BookingRef()
	if !strings.HasPrefix(ref, "BKG-") {
		t.Fatalf("unexpected booking reference prefix: %s", ref)
	}
	if len(ref) != len("BKG-")+10 {
		t.Fatalf("unexpected booking reference length: %s", ref)
	}
}

func TestNoCollisionsAcrossBatch(t *testing.T) {
	seen := make(map[string]struct{}, 3000)
	for i := 0; i < 1000; i++ {
		for _, ref := range []string{BookingRef(), PaymentRef(), TicketCode()} {
			if _, dup := seen[ref]; dup {
				t.Fatalf("duplicate reference generated: %s", ref)
			}
			seen[ref] = struct{}{}
		}
	}
}
