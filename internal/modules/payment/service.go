// Package payment orchestrates the money side of a booking: opening a
// gateway order, verifying client-reported completion, reconciling
// gateway webhooks and refunding. Client-driven verify and
// gateway-driven webhooks may arrive in either order or both; a
// per-payment lock plus a status-conditional completion update
// guarantee exactly one of them applies the terminal transition and its
// side effects.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tickethub/internal/domain"
	"tickethub/internal/gateway"
	"tickethub/internal/monitoring"
	"tickethub/internal/pkg/refgen"
	"tickethub/internal/repository"
)

const (
	webhookPaymentCaptured = "payment.captured"
	webhookPaymentFailed   = "payment.failed"
)

type Service struct {
	payments      *repository.PaymentRepository
	bookings      *repository.BookingRepository
	confirmer     Confirmer
	gateway       Gateway
	locks         Locker
	webhookSecret string
	gatewayName   string
	now           func() time.Time
}

func NewService(
	payments *repository.PaymentRepository,
	bookings *repository.BookingRepository,
	confirmer Confirmer,
	gw Gateway,
	locks Locker,
	webhookSecret string,
	gatewayName string,
) *Service {
	return &Service{
		payments:      payments,
		bookings:      bookings,
		confirmer:     confirmer,
		gateway:       gw,
		locks:         locks,
		webhookSecret: webhookSecret,
		gatewayName:   gatewayName,
		now:           time.Now,
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateIntent opens a gateway order for the booking's net amount and
// records a PENDING payment attempt. A booking holds at most one
// non-terminal attempt at a time.
func (s *Service) CreateIntent(ctx context.Context, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingPending {
		return nil, fmt.Errorf("booking %s is %s, payment intent requires PENDING: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
	inFlight, err := s.payments.HasNonTerminal(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if inFlight {
		return nil, fmt.Errorf("booking %s already has a payment in flight: %w", b.Reference, domain.ErrInvalidState)
	}

	net := b.NetAmount()
	order, err := s.gateway.CreateOrder(ctx, minorUnits(net), b.Currency, b.Reference)
	if err != nil {
		return nil, err
	}

	p := &domain.Payment{
		Reference:       refgen.PaymentRef(),
		ExternalOrderID: order.ID,
		Method:          method,
		Status:          domain.PaymentPending,
		Amount:          net,
		Currency:        b.Currency,
		ProcessingFee:   b.ServiceFee,
		Gateway:         s.gatewayName,
		GatewayResponse: order.Raw,
		BookingID:       b.ID,
		UserID:          b.UserID,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if repository.IsDuplicateKey(err) {
			p.Reference = refgen.PaymentRef()
			err = s.payments.Create(ctx, p)
		}
		if err != nil {
			return nil, err
		}
	}
	log.Printf("level=info msg=\"payment intent created\" reference=%s booking=%s order=%s amount=%s", p.Reference, b.Reference, order.ID, net)
	return p, nil
}

// Verify handles the client-reported completion callback. The
// signature over "orderID|txnID" is checked first; then the gateway is
// asked for the authoritative payment status, and the payment is
// completed or failed accordingly. A retryable gateway failure leaves
// the payment PENDING for the webhook or a later retry.
func (s *Service) Verify(ctx context.Context, externalOrderID, externalTxnID, signature string) (*domain.Payment, error) {
	p, err := s.payments.GetByExternalOrderID(ctx, externalOrderID)
	if err != nil {
		return nil, err
	}
	if !p.Status.NonTerminal() {
		// duplicate callback after the webhook won the race
		return p, nil
	}

	if !equalSignatures(signPair(s.webhookSecret, externalOrderID, externalTxnID), signature) {
		if _, err := s.payments.Fail(ctx, p.ID, "signature mismatch", s.now()); err != nil {
			return nil, err
		}
		monitoring.PaymentOutcome(string(domain.PaymentFailed), "verify")
		return nil, fmt.Errorf("payment %s: %w", p.Reference, domain.ErrInvalidSignature)
	}

	acquired, err := s.locks.AcquirePaymentLock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("payment %s is being reconciled: %w", p.Reference, domain.ErrInvalidState)
	}
	defer func() {
		if err := s.locks.ReleasePaymentLock(ctx, p.ID); err != nil {
			log.Printf("level=error msg=\"release payment lock\" payment=%d err=%v", p.ID, err)
		}
	}()

	info, err := s.gateway.FetchPayment(ctx, externalTxnID)
	if err != nil {
		if domain.IsRetryableGateway(err) {
			// stays PENDING, the webhook or a retry will settle it
			return nil, err
		}
		if _, ferr := s.payments.Fail(ctx, p.ID, err.Error(), s.now()); ferr != nil {
			return nil, ferr
		}
		monitoring.PaymentOutcome(string(domain.PaymentFailed), "verify")
		return nil, err
	}

	if info.Status == gateway.StatusCaptured {
		return s.complete(ctx, p, externalTxnID, info.Raw, "verify")
	}
	return s.fail(ctx, p, fmt.Sprintf("gateway status %q", info.Status), "verify")
}

// ReconcileWebhook ingests a gateway webhook. The raw body signature is
// verified, the event routed on type, and the payment settled with the
// same lock/conditional-update discipline as Verify. Payments already
// in a terminal state are left untouched so duplicate or delayed
// deliveries are harmless.
func (s *Service) ReconcileWebhook(ctx context.Context, payload []byte, signature string) error {
	if !equalSignatures(signPayload(s.webhookSecret, payload), signature) {
		return fmt.Errorf("webhook body: %w", domain.ErrInvalidSignature)
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("webhook body does not parse: %w", domain.ErrMalformedInput)
	}
	if evt.Event != webhookPaymentCaptured && evt.Event != webhookPaymentFailed {
		return fmt.Errorf("unhandled webhook event %q: %w", evt.Event, domain.ErrMalformedInput)
	}
	ent := evt.Payload.Payment.Entity
	if ent.OrderID == "" {
		return fmt.Errorf("webhook payment entity missing order id: %w", domain.ErrMalformedInput)
	}

	p, err := s.payments.GetByExternalOrderID(ctx, ent.OrderID)
	if err != nil {
		return err
	}
	if err := s.payments.RecordWebhook(ctx, p.ID, string(payload), s.now()); err != nil {
		return err
	}
	if !p.Status.NonTerminal() {
		log.Printf("level=info msg=\"webhook for settled payment ignored\" payment=%s status=%s event=%s", p.Reference, p.Status, evt.Event)
		return nil
	}

	acquired, err := s.locks.AcquirePaymentLock(ctx, p.ID)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("payment %s is being reconciled: %w", p.Reference, domain.ErrInvalidState)
	}
	defer func() {
		if err := s.locks.ReleasePaymentLock(ctx, p.ID); err != nil {
			log.Printf("level=error msg=\"release payment lock\" payment=%d err=%v", p.ID, err)
		}
	}()

	switch evt.Event {
	case webhookPaymentCaptured:
		_, err = s.complete(ctx, p, ent.ID, string(payload), "webhook")
	case webhookPaymentFailed:
		reason := ent.ErrorDescription
		if reason == "" {
			reason = "gateway reported failure"
		}
		_, err = s.fail(ctx, p, reason, "webhook")
	}
	return err
}

// complete applies the COMPLETED transition. The conditional update in
// the repository is the arbiter: only the caller that actually flipped
// the row confirms the booking, so tickets are issued exactly once.
func (s *Service) complete(ctx context.Context, p *domain.Payment, externalTxnID, raw, source string) (*domain.Payment, error) {
	changed, err := s.payments.Complete(ctx, p.ID, externalTxnID, raw, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		monitoring.PaymentOutcome(string(domain.PaymentCompleted), source)
		log.Printf("level=info msg=\"payment completed\" reference=%s source=%s txn=%s", p.Reference, source, externalTxnID)
		if _, err := s.confirmer.Confirm(ctx, p.BookingID); err != nil {
			// the payment is captured; confirmation is retried out of
			// band rather than rolled back
			log.Printf("level=error msg=\"booking confirmation after capture failed\" booking=%d err=%v", p.BookingID, err)
		}
	}
	return s.payments.GetByID(ctx, p.ID)
}

func (s *Service) fail(ctx context.Context, p *domain.Payment, reason, source string) (*domain.Payment, error) {
	changed, err := s.payments.Fail(ctx, p.ID, reason, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		monitoring.PaymentOutcome(string(domain.PaymentFailed), source)
		log.Printf("level=warn msg=\"payment failed\" reference=%s source=%s reason=%q", p.Reference, source, reason)
	}
	return s.payments.GetByID(ctx, p.ID)
}

// Refund moves up to the remaining refundable amount back through the
// gateway. Fully refunded payments flip to REFUNDED and pull a
// CANCELLED booking along to REFUNDED; partial refunds leave the
// payment PARTIALLY_REFUNDED.
func (s *Service) Refund(ctx context.Context, paymentID int64, amount decimal.Decimal, reason string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentCompleted && p.Status != domain.PaymentPartiallyRefunded {
		return nil, fmt.Errorf("payment %s is %s, refund requires COMPLETED: %w", p.Reference, p.Status, domain.ErrInvalidState)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("refund amount must be positive: %w", domain.ErrMalformedInput)
	}
	if amount.GreaterThan(p.RemainingRefundable()) {
		return nil, fmt.Errorf("refund %s exceeds remaining refundable %s: %w", amount, p.RemainingRefundable(), domain.ErrInvalidState)
	}

	if _, err := s.gateway.Refund(ctx, p.ExternalTxnID, minorUnits(amount)); err != nil {
		return nil, err
	}

	updated, err := s.payments.ApplyRefund(ctx, p.ID, amount, reason, "", s.now())
	if err != nil {
		return nil, err
	}
	monitoring.PaymentOutcome(string(updated.Status), "refund")
	log.Printf("level=info msg=\"payment refunded\" reference=%s amount=%s status=%s", updated.Reference, amount, updated.Status)

	if updated.Status == domain.PaymentRefunded {
		changed, err := s.bookings.TransitionStatus(ctx, p.BookingID,
			[]domain.BookingStatus{domain.BookingCancelled},
			domain.BookingRefunded,
			map[string]interface{}{"refunded_at": s.now()})
		if err != nil {
			return nil, err
		}
		if changed {
			monitoring.BookingTransition(string(domain.BookingRefunded))
		}
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	return s.payments.ListByBooking(ctx, bookingID)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}
