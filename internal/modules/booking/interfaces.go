package booking

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tickethub/internal/domain"
)

// TicketIssuer mints tickets inside the confirmation transaction.
type TicketIssuer interface {
	IssueFor(ctx context.Context, tx *gorm.DB, b *domain.Booking, lines []domain.BookingLine) ([]domain.Ticket, error)
}

// Notifier delivers lifecycle notifications. Calls are fire-and-forget:
// the service logs failures and never lets them affect a transition.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *domain.Booking)
	BookingCancelled(ctx context.Context, b *domain.Booking)
}

// RefundProcessor moves money back through the payment orchestrator. It
// is injected after construction because the payment service in turn
// depends on booking confirmation.
type RefundProcessor interface {
	Refund(ctx context.Context, paymentID int64, amount decimal.Decimal, reason string) (*domain.Payment, error)
}
