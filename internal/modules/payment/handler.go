package payment

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tickethub/internal/domain"
	"tickethub/internal/pkg/response"
)

// signatureHeader carries the webhook body signature.
const signatureHeader = "X-Webhook-Signature"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/intent", h.CreateIntent)
	rg.POST("/payments/verify", h.Verify)
	rg.GET("/payments", h.ListMine)
	rg.GET("/payments/:id", h.Get)
}

// RegisterAdminRoutes mounts the refund endpoint. Refunds address the
// payment in the body so the POST subtree under /payments stays static.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/refund", h.Refund)
}

// RegisterWebhookRoutes mounts the unauthenticated gateway callback.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/payment", h.Webhook)
}

func (h *Handler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	p, err := h.service.CreateIntent(c.Request.Context(), req.BookingID, domain.PaymentMethod(req.Method))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	p, err := h.service.Verify(c.Request.Context(), req.ExternalOrderID, req.ExternalTxnID, req.Signature)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// Webhook always answers 200: signature mismatches, unknown events and
// already-settled payments are logged and swallowed so the gateway does
// not retry conditions that will never resolve differently.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "MALFORMED_INPUT", "unreadable body")
		return
	}
	if err := h.service.ReconcileWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader)); err != nil {
		log.Printf("level=warn msg=\"webhook not applied\" err=%v", err)
	}
	response.Success(c, http.StatusOK, gin.H{"received": true})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid payment id")
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if p.UserID != c.GetInt64("user_id") && c.GetString("role") != string(domain.RoleAdmin) {
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "you do not own this payment")
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) ListMine(c *gin.Context) {
	payments, err := h.service.ListByUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, payments)
}

func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	p, err := h.service.Refund(c.Request.Context(), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}
