package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every module. Handlers map these onto HTTP
// status codes in internal/pkg/response; services never return raw
// gorm/driver errors to callers.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidState          = errors.New("operation not allowed in current state")
	ErrInsufficientInventory = errors.New("insufficient ticket inventory")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrMalformedInput        = errors.New("malformed input")
	ErrPermissionDenied      = errors.New("permission denied")
)

// GatewayError wraps a payment-gateway failure. Retryable failures
// (timeouts, 5xx) leave the payment PENDING for later reconciliation;
// terminal ones (4xx) mark it FAILED.
type GatewayError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s failed", e.Op)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsRetryableGateway reports whether err is a gateway failure worth
// retrying (payment stays PENDING).
func IsRetryableGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}
