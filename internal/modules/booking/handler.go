package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tickethub/internal/domain"
	"tickethub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.Create)
	rg.GET("/bookings", h.ListMine)
	rg.GET("/bookings/:id", h.Get)
	rg.POST("/bookings/:id/cancel", h.Cancel)
	rg.POST("/bookings/:id/refund", h.Refund)
}

// RegisterStaffRoutes mounts organizer-side operations; the router
// guards them with the organizer role.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/check-in", h.CheckIn)
	rg.POST("/bookings/:id/no-show", h.MarkNoShow)
}

func (h *Handler) bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid booking id")
		return 0, false
	}
	return id, true
}

// owned loads the booking and rejects callers that neither own it nor
// hold the admin role.
func (h *Handler) owned(c *gin.Context, id int64) (*domain.Booking, bool) {
	b, err := h.service.bookings.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	if b.UserID != c.GetInt64("user_id") && c.GetString("role") != string(domain.RoleAdmin) {
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "you do not own this booking")
		return nil, false
	}
	return b, true
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	b, err := h.service.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	b, lines, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b, "lines": lines})
}

func (h *Handler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	bookings, err := h.service.ListByUser(c.Request.Context(), c.GetInt64("user_id"), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, bookings)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	b, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Refund(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	b, err := h.service.Refund(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	b, err := h.service.CheckIn(c.Request.Context(), id, req.Gate)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}
