package payment

import (
	"context"

	"tickethub/internal/domain"
	"tickethub/internal/gateway"
)

// Confirmer drives the booking side effects of a successful payment.
// Satisfied by the booking service; mocked in tests.
type Confirmer interface {
	Confirm(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

// Gateway is the external payment provider surface the orchestrator
// needs. Satisfied by gateway.Client.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error)
	FetchPayment(ctx context.Context, externalTxnID string) (*gateway.PaymentInfo, error)
	Refund(ctx context.Context, externalTxnID string, amountMinor int64) (*gateway.RefundRecord, error)
}

// Locker serializes verify and webhook reconciliation for one payment.
// Satisfied by cache.RedisCache.
type Locker interface {
	AcquirePaymentLock(ctx context.Context, paymentID int64) (bool, error)
	ReleasePaymentLock(ctx context.Context, paymentID int64) error
}
