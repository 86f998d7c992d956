package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"tickethub/internal/domain"
)

func setupTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_test_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", t.Name())
	db, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&domain.TicketClass{}, &domain.Reservation{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return NewLedger(db), db
}

func seedClass(t *testing.T, db *gorm.DB, available int) *domain.TicketClass {
	t.Helper()
	tc := &domain.TicketClass{
		EventID:           1,
		Name:              "General Admission",
		Price:             decimal.NewFromInt(500),
		QuantityAvailable: available,
		MinPerBooking:     1,
		Status:            domain.TicketClassActive,
	}
	if err := db.Create(tc).Error; err != nil {
		t.Fatalf("seed ticket class: %v", err)
	}
	return tc
}

func loadClass(t *testing.T, db *gorm.DB, id int64) *domain.TicketClass {
	t.Helper()
	var tc domain.TicketClass
	if err := db.First(&tc, id).Error; err != nil {
		t.Fatalf("reload ticket class: %v", err)
	}
	return &tc
}

func TestReserveHoldsUnits(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)

	res, err := ledger.Reserve(context.Background(), tc.ID, 3)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if res.Status != domain.ReservationHeld {
		t.Fatalf("expected held reservation, got %s", res.Status)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantityHeld != 3 || got.QuantitySold != 0 {
		t.Fatalf("expected held=3 sold=0, got held=%d sold=%d", got.QuantityHeld, got.QuantitySold)
	}
}

func TestReserveRejectsOverCapacity(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 5)

	if _, err := ledger.Reserve(context.Background(), tc.ID, 3); err != nil {
		t.Fatalf("first Reserve returned error: %v", err)
	}
	_, err := ledger.Reserve(context.Background(), tc.ID, 3)
	if !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantityHeld != 3 {
		t.Fatalf("failed reserve must not change held, got %d", got.QuantityHeld)
	}
}

func TestReserveRespectsSaleWindow(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)
	past := time.Now().Add(-time.Hour)
	if err := db.Model(tc).Update("sale_end_at", past).Error; err != nil {
		t.Fatalf("update sale window: %v", err)
	}

	_, err := ledger.Reserve(context.Background(), tc.ID, 1)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after sale end, got %v", err)
	}
}

func TestReserveRespectsPerBookingLimits(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)
	if err := db.Model(tc).Update("max_per_booking", 2).Error; err != nil {
		t.Fatalf("update limit: %v", err)
	}

	_, err := ledger.Reserve(context.Background(), tc.ID, 3)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState above max per booking, got %v", err)
	}
}

func TestReserveUnknownClass(t *testing.T) {
	ledger, _ := setupTestLedger(t)
	_, err := ledger.Reserve(context.Background(), 9999, 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitMovesHeldToSold(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)

	res, err := ledger.Reserve(context.Background(), tc.ID, 4)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := ledger.Commit(context.Background(), res.ID); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantitySold != 4 || got.QuantityHeld != 0 {
		t.Fatalf("expected sold=4 held=0, got sold=%d held=%d", got.QuantitySold, got.QuantityHeld)
	}

	// idempotent: the second commit must not double-count
	if err := ledger.Commit(context.Background(), res.ID); err != nil {
		t.Fatalf("repeat Commit returned error: %v", err)
	}
	got = loadClass(t, db, tc.ID)
	if got.QuantitySold != 4 || got.QuantityHeld != 0 {
		t.Fatalf("repeat commit changed counters: sold=%d held=%d", got.QuantitySold, got.QuantityHeld)
	}
}

func TestCommitReleasedReservationFails(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)

	res, err := ledger.Reserve(context.Background(), tc.ID, 2)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := ledger.Release(context.Background(), res.ID); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := ledger.Commit(context.Background(), res.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState committing released reservation, got %v", err)
	}
}

func TestReleaseHeldReturnsUnits(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)

	res, err := ledger.Reserve(context.Background(), tc.ID, 5)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := ledger.Release(context.Background(), res.ID); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantityHeld != 0 || got.QuantitySold != 0 {
		t.Fatalf("expected counters back to zero, got held=%d sold=%d", got.QuantityHeld, got.QuantitySold)
	}

	// releasing again is a no-op
	if err := ledger.Release(context.Background(), res.ID); err != nil {
		t.Fatalf("repeat Release returned error: %v", err)
	}
	got = loadClass(t, db, tc.ID)
	if got.QuantityHeld != 0 {
		t.Fatalf("repeat release changed held to %d", got.QuantityHeld)
	}
}

func TestReleaseCommittedDecrementsSold(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 10)

	res, err := ledger.Reserve(context.Background(), tc.ID, 2)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := ledger.Commit(context.Background(), res.ID); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if err := ledger.Release(context.Background(), res.ID); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantitySold != 0 || got.QuantityHeld != 0 {
		t.Fatalf("expected sold=0 held=0 after releasing committed units, got sold=%d held=%d", got.QuantitySold, got.QuantityHeld)
	}
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	ledger, db := setupTestLedger(t)
	tc := seedClass(t, db, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reserve(context.Background(), tc.ID, 1)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientInventory):
			rejected++
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d rejected=%d", ok, rejected)
	}

	got := loadClass(t, db, tc.ID)
	if got.QuantityHeld != 1 {
		t.Fatalf("expected held=1 on capacity-1 class, got %d", got.QuantityHeld)
	}
}
