package event

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

// RegisterPublicRoutes exposes read-only browsing; organizer mutations
// go through RegisterOrganizerRoutes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/events/:id", h.Get)
	rg.GET("/events/:id/ticket-classes", h.ListTicketClasses)
}

func (h *Handler) RegisterOrganizerRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.Create)
	rg.GET("/events", h.ListMine)
	rg.PATCH("/events/:id", h.Update)
	rg.POST("/events/:id/publish", h.Publish)
	rg.POST("/events/:id/cancel", h.Cancel)
	rg.POST("/events/:id/ticket-classes", h.AddTicketClass)
}

func (h *Handler) eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid event id")
		return 0, false
	}
	return id, true
}

func caller(c *gin.Context) (int64, domain.Role) {
	return c.GetInt64("user_id"), domain.Role(c.GetString("role"))
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	e, err := h.service.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, e)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	e, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) ListMine(c *gin.Context) {
	events, err := h.service.ListByOrganizer(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	userID, role := caller(c)
	e, err := h.service.Update(c.Request.Context(), id, userID, role, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) Publish(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	userID, role := caller(c)
	e, err := h.service.Publish(c.Request.Context(), id, userID, role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	userID, role := caller(c)
	e, err := h.service.Cancel(c.Request.Context(), id, userID, role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) AddTicketClass(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req CreateTicketClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	userID, role := caller(c)
	tc, err := h.service.AddTicketClass(c.Request.Context(), id, userID, role, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, tc)
}

func (h *Handler) ListTicketClasses(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	classes, err := h.service.ListTicketClasses(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, classes)
}
