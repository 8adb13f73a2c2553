package authz

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrForbidden matches every denial returned by Service.Authorize.
var ErrForbidden = errors.New("permission denied")

// ForbiddenError describes a request denied in enforce mode.
type ForbiddenError struct {
	Request Request
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("permission denied: %s may not %s %s", e.Request.Subject, e.Request.Action, e.Request.Object)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
