package booking

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"academybook/internal/middleware"
	"academybook/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/bookings")
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/cancel", h.cancel)
	g.GET("/:id/status-view", h.statusView)
}

func (h *Handler) approve(c *gin.Context) {
	b, err := h.svc.Approve(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BookingResponse{Booking: b, View: Resolve(b.Status, b.PaymentStatus)})
}

func (h *Handler) reject(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.svc.Reject(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BookingResponse{Booking: b, View: Resolve(b.Status, b.PaymentStatus)})
}

func (h *Handler) cancel(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BookingResponse{Booking: b, View: Resolve(b.Status, b.PaymentStatus)})
}

func (h *Handler) statusView(c *gin.Context) {
	b, view, err := h.svc.StatusViewFor(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BookingResponse{Booking: b, View: view})
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextUserID)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Booking already processed")
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
