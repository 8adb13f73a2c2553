package services

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/pkg/authz"
)

var (
	ErrInvalidPosition     = errors.New("position id must be positive")
	ErrUnresolvedObjective = errors.New("objective could not be resolved")
	ErrSessionClosed       = errors.New("editor session is closed")
	ErrInvalidMode         = errors.New("invalid editor mode")
	ErrInvalidTransition   = errors.New("transition not allowed in the current mode")
	ErrReadOnly            = errors.New("editor session is read-only")
	ErrSubmitInProgress    = errors.New("a submission is already in flight")
	ErrNoSaver             = errors.New("editor session has no saver")
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// AsServiceError classifies err for transport layers. Unknown errors map to 500.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	var verrs allocation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return newServiceError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "kpi allocation is invalid", verrs)
	case errors.Is(err, authz.ErrForbidden):
		return newServiceError(http.StatusForbidden, "AUTHZ_FORBIDDEN", "permission denied", err)
	case errors.Is(err, ErrInvalidPosition):
		return newServiceError(http.StatusBadRequest, "INVALID_POSITION", err.Error(), err)
	default:
		return newServiceError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", err)
	}
}
