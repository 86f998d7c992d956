package booking

type LineRequest struct {
	TicketClassID int64 `json:"ticket_class_id" binding:"required"`
	Quantity      int   `json:"quantity" binding:"required,min=1"`
}

type CreateRequest struct {
	EventID int64         `json:"event_id" binding:"required"`
	Lines   []LineRequest `json:"lines" binding:"required,dive"`
	Notes   string        `json:"notes"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

type CheckInRequest struct {
	Gate string `json:"gate"`
}
