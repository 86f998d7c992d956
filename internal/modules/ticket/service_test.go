package ticket

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"tickethub/internal/domain"
	"tickethub/internal/repository"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:ticket_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Ticket{}, &domain.Booking{}, &domain.BookingLine{}, &domain.TicketClass{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	svc := NewService(db,
		repository.NewTicketRepository(db),
		repository.NewBookingRepository(db),
		repository.NewTicketClassRepository(db),
	)
	return svc, db
}

func seedConfirmedBooking(t *testing.T, db *gorm.DB) (*domain.Booking, *domain.TicketClass) {
	t.Helper()
	tc := &domain.TicketClass{
		EventID:           1,
		Name:              "VIP",
		Price:             decimal.NewFromInt(1000),
		QuantityAvailable: 50,
		IsTransferable:    true,
		Status:            domain.TicketClassActive,
	}
	if err := db.Create(tc).Error; err != nil {
		t.Fatalf("seed ticket class: %v", err)
	}
	b := &domain.Booking{
		Reference:   "BKG-TESTREF001",
		Status:      domain.BookingConfirmed,
		TotalAmount: decimal.NewFromInt(2000),
		Currency:    "INR",
		UserID:      100,
		EventID:     1,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b, tc
}

func issueOne(t *testing.T, svc *Service, db *gorm.DB, b *domain.Booking, tc *domain.TicketClass, qty int) []domain.Ticket {
	t.Helper()
	lines := []domain.BookingLine{{
		BookingID:     b.ID,
		TicketClassID: tc.ID,
		ReservationID: "res-1",
		Quantity:      qty,
		UnitPrice:     tc.Price,
		TotalPrice:    tc.Price.Mul(decimal.NewFromInt(int64(qty))),
	}}
	var issued []domain.Ticket
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		issued, err = svc.IssueFor(context.Background(), tx, b, lines)
		return err
	})
	if err != nil {
		t.Fatalf("IssueFor returned error: %v", err)
	}
	return issued
}

func TestIssueForMintsOneTicketPerUnit(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)

	issued := issueOne(t, svc, db, b, tc, 3)
	if len(issued) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(issued))
	}

	seen := map[string]bool{}
	for _, tk := range issued {
		if tk.Status != domain.TicketActive {
			t.Fatalf("expected ACTIVE ticket, got %s", tk.Status)
		}
		if seen[tk.Code] {
			t.Fatalf("duplicate ticket code %s", tk.Code)
		}
		seen[tk.Code] = true

		bookingID, ticketID, code, err := DecodePayload(tk.QRPayload)
		if err != nil {
			t.Fatalf("issued payload does not decode: %v", err)
		}
		if bookingID != b.ID || ticketID != tk.ID || code != tk.Code {
			t.Fatalf("payload fields mismatch: %s", tk.QRPayload)
		}
	}
}

func TestValidateAcceptsActiveTicketOnConfirmedBooking(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	got, err := svc.Validate(context.Background(), issued[0].QRPayload)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got.ID != issued[0].ID {
		t.Fatalf("expected ticket %d, got %d", issued[0].ID, got.ID)
	}
}

func TestValidateRejectsUnknownTicket(t *testing.T) {
	svc, _ := setupTestService(t)
	_, err := svc.Validate(context.Background(), "TICKETHUB|1|999|TKT-NOPE")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateRejectsCodeMismatch(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	forged := EncodePayload(b.ID, issued[0].ID, "TKT-FORGEDCODE1")
	if _, err := svc.Validate(context.Background(), forged); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on forged code, got %v", err)
	}
}

func TestValidateRejectsCancelledBooking(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	if err := db.Model(b).Update("status", domain.BookingCancelled).Error; err != nil {
		t.Fatalf("update booking: %v", err)
	}
	if _, err := svc.Validate(context.Background(), issued[0].QRPayload); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on cancelled booking, got %v", err)
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	used, err := svc.Redeem(context.Background(), issued[0].QRPayload, "gate-a")
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if used.Status != domain.TicketUsed || used.UsedBy != "gate-a" || used.UsedAt == nil {
		t.Fatalf("redeemed ticket not marked used: %+v", used)
	}

	if _, err := svc.Redeem(context.Background(), issued[0].QRPayload, "gate-b"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second redeem, got %v", err)
	}
}

func TestTransferMintsReplacementAndVoidsOriginal(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	replacement, err := svc.Transfer(context.Background(), issued[0].ID, b.UserID, 200, "gift")
	if err != nil {
		t.Fatalf("Transfer returned error: %v", err)
	}
	if replacement.UserID != 200 || replacement.Status != domain.TicketActive {
		t.Fatalf("unexpected replacement ticket: %+v", replacement)
	}
	if replacement.Code == issued[0].Code {
		t.Fatalf("replacement must carry a new code")
	}

	original, err := svc.Get(context.Background(), issued[0].ID)
	if err != nil {
		t.Fatalf("Get original returned error: %v", err)
	}
	if original.Status != domain.TicketTransferred {
		t.Fatalf("expected original TRANSFERRED, got %s", original.Status)
	}

	// the old QR payload no longer admits anyone
	if _, err := svc.Validate(context.Background(), issued[0].QRPayload); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState validating transferred ticket, got %v", err)
	}
}

func TestTransferChecksOwnership(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	if _, err := svc.Transfer(context.Background(), issued[0].ID, 999, 200, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTransferRejectsNonTransferableClass(t *testing.T) {
	svc, db := setupTestService(t)
	b, tc := seedConfirmedBooking(t, db)
	issued := issueOne(t, svc, db, b, tc, 1)

	if err := db.Model(tc).Update("is_transferable", false).Error; err != nil {
		t.Fatalf("update class: %v", err)
	}
	if _, err := svc.Transfer(context.Background(), issued[0].ID, b.UserID, 200, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
