package payment

import "github.com/shopspring/decimal"

type CreateIntentRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	Method    string `json:"method" binding:"required"`
}

type VerifyRequest struct {
	ExternalOrderID string `json:"external_order_id" binding:"required"`
	ExternalTxnID   string `json:"external_payment_id" binding:"required"`
	Signature       string `json:"signature" binding:"required"`
}

type RefundRequest struct {
	PaymentID int64           `json:"payment_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason"`
}
