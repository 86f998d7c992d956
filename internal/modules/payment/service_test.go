package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"tickethub/internal/domain"
	"tickethub/internal/gateway"
	"tickethub/internal/repository"
)

const testSecret = "whsec_test"

type fakeGateway struct {
	createOrder  func(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error)
	fetchPayment func(ctx context.Context, externalTxnID string) (*gateway.PaymentInfo, error)
	refund       func(ctx context.Context, externalTxnID string, amountMinor int64) (*gateway.RefundRecord, error)
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	return g.createOrder(ctx, amountMinor, currency, receipt)
}

func (g *fakeGateway) FetchPayment(ctx context.Context, externalTxnID string) (*gateway.PaymentInfo, error) {
	return g.fetchPayment(ctx, externalTxnID)
}

func (g *fakeGateway) Refund(ctx context.Context, externalTxnID string, amountMinor int64) (*gateway.RefundRecord, error) {
	return g.refund(ctx, externalTxnID, amountMinor)
}

// fakeLocker mirrors redis SETNX semantics in process.
type fakeLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[int64]bool{}}
}

func (l *fakeLocker) AcquirePaymentLock(_ context.Context, paymentID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[paymentID] {
		return false, nil
	}
	l.held[paymentID] = true
	return true, nil
}

func (l *fakeLocker) ReleasePaymentLock(_ context.Context, paymentID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, paymentID)
	return nil
}

// fakeConfirmer applies the same conditional PENDING->CONFIRMED flip
// the booking service does, and counts how often it actually confirms.
type fakeConfirmer struct {
	bookings *repository.BookingRepository
	calls    atomic.Int64
}

func (c *fakeConfirmer) Confirm(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	c.calls.Add(1)
	if _, err := c.bookings.TransitionStatus(ctx, bookingID,
		[]domain.BookingStatus{domain.BookingPending}, domain.BookingConfirmed, nil); err != nil {
		return nil, err
	}
	return c.bookings.GetByID(ctx, bookingID)
}

type testEnv struct {
	svc       *Service
	db        *gorm.DB
	gw        *fakeGateway
	confirmer *fakeConfirmer
	payments  *repository.PaymentRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_test_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", t.Name())
	db, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Booking{}, &domain.Payment{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	payments := repository.NewPaymentRepository(db)
	bookings := repository.NewBookingRepository(db)
	gw := &fakeGateway{
		createOrder: func(_ context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
			return &gateway.Order{ID: "order_" + receipt, Amount: amountMinor, Currency: currency, Status: "created", Raw: "{}"}, nil
		},
		fetchPayment: func(_ context.Context, externalTxnID string) (*gateway.PaymentInfo, error) {
			return &gateway.PaymentInfo{ID: externalTxnID, Status: gateway.StatusCaptured, Raw: "{}"}, nil
		},
		refund: func(_ context.Context, externalTxnID string, amountMinor int64) (*gateway.RefundRecord, error) {
			return &gateway.RefundRecord{ID: "rfnd_1", Amount: amountMinor, Status: "processed", Raw: "{}"}, nil
		},
	}
	confirmer := &fakeConfirmer{bookings: bookings}
	svc := NewService(payments, bookings, confirmer, gw, newFakeLocker(), testSecret, "razorpay")
	return &testEnv{svc: svc, db: db, gw: gw, confirmer: confirmer, payments: payments}
}

func seedBooking(t *testing.T, db *gorm.DB, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		Reference:   fmt.Sprintf("BKG-%s-%s", t.Name(), status),
		Status:      status,
		TotalAmount: decimal.NewFromInt(1000),
		TaxAmount:   decimal.NewFromInt(180),
		ServiceFee:  decimal.NewFromInt(20),
		Currency:    "INR",
		UserID:      100,
		EventID:     1,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestCreateIntentOpensGatewayOrder(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)

	var gotMinor int64
	env.gw.createOrder = func(_ context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
		gotMinor = amountMinor
		return &gateway.Order{ID: "order_x", Amount: amountMinor, Currency: currency, Status: "created", Raw: "{}"}, nil
	}

	p, err := env.svc.CreateIntent(context.Background(), b.ID, domain.MethodUPI)
	if err != nil {
		t.Fatalf("CreateIntent returned error: %v", err)
	}
	// net 1200.00 -> 120000 minor units
	if gotMinor != 120000 {
		t.Fatalf("expected order for 120000 minor units, got %d", gotMinor)
	}
	if p.Status != domain.PaymentPending || p.ExternalOrderID != "order_x" {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if !p.Amount.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("expected amount 1200, got %s", p.Amount)
	}
	if !p.ProcessingFee.Equal(b.ServiceFee) {
		t.Fatalf("expected processing fee %s, got %s", b.ServiceFee, p.ProcessingFee)
	}
}

func TestCreateIntentRejectsSecondInFlightAttempt(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)

	if _, err := env.svc.CreateIntent(context.Background(), b.ID, domain.MethodCard); err != nil {
		t.Fatalf("first CreateIntent returned error: %v", err)
	}
	_, err := env.svc.CreateIntent(context.Background(), b.ID, domain.MethodCard)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCreateIntentRequiresPendingBooking(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingConfirmed)
	_, err := env.svc.CreateIntent(context.Background(), b.ID, domain.MethodCard)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func intentFor(t *testing.T, env *testEnv, b *domain.Booking) *domain.Payment {
	t.Helper()
	p, err := env.svc.CreateIntent(context.Background(), b.ID, domain.MethodUPI)
	if err != nil {
		t.Fatalf("CreateIntent returned error: %v", err)
	}
	return p
}

func TestVerifyCompletesPaymentAndConfirmsBooking(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	sig := signPair(testSecret, p.ExternalOrderID, "pay_123")
	got, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_123", sig)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if got.Status != domain.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if got.ExternalTxnID != "pay_123" || got.ProcessedAt == nil {
		t.Fatalf("completion fields not set: %+v", got)
	}
	if !got.NetAmount.Equal(got.Amount.Sub(got.ProcessingFee)) {
		t.Fatalf("net amount %s != amount - fee", got.NetAmount)
	}
	if n := env.confirmer.calls.Load(); n != 1 {
		t.Fatalf("expected 1 confirm call, got %d", n)
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	_, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_123", "deadbeef")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	got, _ := env.payments.GetByID(context.Background(), p.ID)
	if got.Status != domain.PaymentFailed {
		t.Fatalf("expected FAILED after bad signature, got %s", got.Status)
	}
	if n := env.confirmer.calls.Load(); n != 0 {
		t.Fatalf("booking must not be confirmed, got %d confirm calls", n)
	}
}

func TestVerifyRetryableGatewayErrorLeavesPaymentPending(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	env.gw.fetchPayment = func(context.Context, string) (*gateway.PaymentInfo, error) {
		return nil, &domain.GatewayError{Op: "fetch", Retryable: true, Err: errors.New("timeout")}
	}
	sig := signPair(testSecret, p.ExternalOrderID, "pay_123")
	_, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_123", sig)
	if !domain.IsRetryableGateway(err) {
		t.Fatalf("expected retryable gateway error, got %v", err)
	}
	got, _ := env.payments.GetByID(context.Background(), p.ID)
	if got.Status != domain.PaymentPending {
		t.Fatalf("expected payment to stay PENDING, got %s", got.Status)
	}
}

func TestVerifyUncapturedPaymentFails(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	env.gw.fetchPayment = func(_ context.Context, id string) (*gateway.PaymentInfo, error) {
		return &gateway.PaymentInfo{ID: id, Status: "failed", Raw: "{}"}, nil
	}
	sig := signPair(testSecret, p.ExternalOrderID, "pay_123")
	got, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_123", sig)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if got.Status != domain.PaymentFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if n := env.confirmer.calls.Load(); n != 0 {
		t.Fatalf("failed payment must not confirm booking")
	}
}

func capturedWebhook(orderID, txnID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"%s","order_id":"%s","status":"captured"}}}}`,
		txnID, orderID))
}

func TestWebhookCapturedCompletesPayment(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	body := capturedWebhook(p.ExternalOrderID, "pay_wh1")
	if err := env.svc.ReconcileWebhook(context.Background(), body, signPayload(testSecret, body)); err != nil {
		t.Fatalf("ReconcileWebhook returned error: %v", err)
	}

	got, _ := env.payments.GetByID(context.Background(), p.ID)
	if got.Status != domain.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if got.WebhookReceivedAt == nil || got.WebhookPayload == "" {
		t.Fatalf("webhook audit fields not recorded")
	}
	if n := env.confirmer.calls.Load(); n != 1 {
		t.Fatalf("expected 1 confirm call, got %d", n)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	body := capturedWebhook(p.ExternalOrderID, "pay_wh1")
	err := env.svc.ReconcileWebhook(context.Background(), body, "bad")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	got, _ := env.payments.GetByID(context.Background(), p.ID)
	if got.Status != domain.PaymentPending {
		t.Fatalf("unsigned webhook changed payment to %s", got.Status)
	}
}

func TestWebhookAfterVerifyIsNoOp(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	sig := signPair(testSecret, p.ExternalOrderID, "pay_123")
	if _, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_123", sig); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	body := capturedWebhook(p.ExternalOrderID, "pay_123")
	if err := env.svc.ReconcileWebhook(context.Background(), body, signPayload(testSecret, body)); err != nil {
		t.Fatalf("ReconcileWebhook returned error: %v", err)
	}
	if n := env.confirmer.calls.Load(); n != 1 {
		t.Fatalf("duplicate delivery confirmed twice: %d calls", n)
	}
}

func TestConcurrentVerifyAndWebhookConvergeOnce(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := intentFor(t, env, b)

	sig := signPair(testSecret, p.ExternalOrderID, "pay_race")
	body := capturedWebhook(p.ExternalOrderID, "pay_race")
	bodySig := signPayload(testSecret, body)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// the loser may see the lock held or the payment settled
		_, _ = env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_race", sig)
	}()
	go func() {
		defer wg.Done()
		_ = env.svc.ReconcileWebhook(context.Background(), body, bodySig)
	}()
	wg.Wait()

	got, _ := env.payments.GetByID(context.Background(), p.ID)
	if got.Status != domain.PaymentCompleted {
		t.Fatalf("expected COMPLETED after race, got %s", got.Status)
	}
	if n := env.confirmer.calls.Load(); n != 1 {
		t.Fatalf("expected exactly 1 confirm call after race, got %d", n)
	}
	booking, _ := env.confirmer.bookings.GetByID(context.Background(), b.ID)
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("expected CONFIRMED booking, got %s", booking.Status)
	}
}

func completedPayment(t *testing.T, env *testEnv, b *domain.Booking) *domain.Payment {
	t.Helper()
	p := intentFor(t, env, b)
	sig := signPair(testSecret, p.ExternalOrderID, "pay_ok")
	got, err := env.svc.Verify(context.Background(), p.ExternalOrderID, "pay_ok", sig)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	return got
}

func TestRefundPartialThenExceedingIsRejected(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := completedPayment(t, env, b)

	got, err := env.svc.Refund(context.Background(), p.ID, decimal.NewFromInt(400), "partial")
	if err != nil {
		t.Fatalf("Refund returned error: %v", err)
	}
	if got.Status != domain.PaymentPartiallyRefunded {
		t.Fatalf("expected PARTIALLY_REFUNDED, got %s", got.Status)
	}
	if !got.RefundAmount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected refund amount 400, got %s", got.RefundAmount)
	}

	// remaining refundable is 800; 900 must be rejected
	_, err = env.svc.Refund(context.Background(), p.ID, decimal.NewFromInt(900), "too much")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestFullRefundFlipsCancelledBooking(t *testing.T) {
	env := setupTestEnv(t)
	b := seedBooking(t, env.db, domain.BookingPending)
	p := completedPayment(t, env, b)

	// the booking was confirmed by verify; cancel it before refunding
	if _, err := env.confirmer.bookings.TransitionStatus(context.Background(), b.ID,
		[]domain.BookingStatus{domain.BookingConfirmed}, domain.BookingCancelled, nil); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	got, err := env.svc.Refund(context.Background(), p.ID, p.RemainingRefundable(), "full")
	if err != nil {
		t.Fatalf("Refund returned error: %v", err)
	}
	if got.Status != domain.PaymentRefunded {
		t.Fatalf("expected REFUNDED, got %s", got.Status)
	}
	booking, _ := env.confirmer.bookings.GetByID(context.Background(), b.ID)
	if booking.Status != domain.BookingRefunded {
		t.Fatalf("expected booking REFUNDED, got %s", booking.Status)
	}
}
