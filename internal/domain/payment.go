package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentDisputed          PaymentStatus = "DISPUTED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentProcessing:        {PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentCompleted:         {PaymentRefunded, PaymentPartiallyRefunded, PaymentDisputed},
	PaymentPartiallyRefunded: {PaymentRefunded, PaymentPartiallyRefunded, PaymentDisputed},
	PaymentDisputed:          {PaymentRefunded, PaymentFailed},
}

func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NonTerminal reports whether the payment attempt is still in flight.
// A booking may hold at most one non-terminal payment at a time.
func (s PaymentStatus) NonTerminal() bool {
	return s == PaymentPending || s == PaymentProcessing
}

type PaymentMethod string

const (
	MethodCard       PaymentMethod = "CARD"
	MethodUPI        PaymentMethod = "UPI"
	MethodNetbanking PaymentMethod = "NETBANKING"
	MethodWallet     PaymentMethod = "WALLET"
)

type Payment struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	Reference         string          `gorm:"uniqueIndex;size:50;not null" json:"reference"`
	ExternalOrderID   string          `gorm:"uniqueIndex;size:100" json:"external_order_id"`
	ExternalTxnID     string          `gorm:"size:100" json:"external_txn_id,omitempty"`
	Method            PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Status            PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;default:'INR'" json:"currency"`
	ProcessingFee     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"processing_fee"`
	NetAmount         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"net_amount"`
	RefundAmount      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"refund_amount"`
	RefundReason      string          `gorm:"type:text" json:"refund_reason,omitempty"`
	Gateway           string          `gorm:"size:50" json:"gateway"`
	GatewayResponse   string          `gorm:"type:text" json:"-"`
	WebhookPayload    string          `gorm:"type:text" json:"-"`
	FailureReason     string          `gorm:"type:text" json:"failure_reason,omitempty"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	WebhookReceivedAt *time.Time      `json:"webhook_received_at,omitempty"`
	BookingID         int64           `gorm:"index;not null" json:"booking_id"`
	UserID            int64           `gorm:"index;not null" json:"user_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}
