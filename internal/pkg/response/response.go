package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tickethub/internal/domain"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// FromError maps the domain error taxonomy onto stable HTTP responses.
// Retryable gateway errors deliberately hide gateway internals behind a
// generic try-again message.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrInvalidState):
		Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		Error(c, http.StatusConflict, "INSUFFICIENT_INVENTORY", "not enough tickets available")
	case errors.Is(err, domain.ErrInvalidSignature):
		Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed")
	case errors.Is(err, domain.ErrMalformedInput):
		Error(c, http.StatusBadRequest, "MALFORMED_INPUT", err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		Error(c, http.StatusForbidden, "PERMISSION_DENIED", "you do not own this resource")
	case domain.IsRetryableGateway(err):
		Error(c, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "payment gateway unavailable, try again")
	default:
		Error(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
