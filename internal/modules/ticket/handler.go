package ticket

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tickethub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts customer routes; RegisterStaffRoutes mounts the
// gate-scanner routes, which the router guards with the organizer role.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tickets", h.ListMine)
	rg.GET("/tickets/:id", h.Get)
	// transfer is addressed by body, keeping the POST subtree free of
	// wildcard/static sibling conflicts with the scanner routes
	rg.POST("/tickets/transfer", h.Transfer)
}

func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.POST("/tickets/validate", h.Validate)
	rg.POST("/tickets/redeem", h.Redeem)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID := c.GetInt64("user_id")
	tickets, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tickets)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ticket id")
		return
	}
	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if t.UserID != c.GetInt64("user_id") {
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "you do not own this ticket")
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	t, err := h.service.Validate(c.Request.Context(), req.QRPayload)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	t, err := h.service.Redeem(c.Request.Context(), req.QRPayload, req.Gate)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	t, err := h.service.Transfer(c.Request.Context(), req.TicketID, c.GetInt64("user_id"), req.ToUserID, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}
