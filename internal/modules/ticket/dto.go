package ticket

type ValidateRequest struct {
	QRPayload string `json:"qr_payload" binding:"required"`
}

type RedeemRequest struct {
	QRPayload string `json:"qr_payload" binding:"required"`
	Gate      string `json:"gate"`
}

type TransferRequest struct {
	TicketID int64  `json:"ticket_id" binding:"required"`
	ToUserID int64  `json:"to_user_id" binding:"required"`
	Notes    string `json:"notes"`
}
