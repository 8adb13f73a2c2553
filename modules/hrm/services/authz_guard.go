package services

import (
	"context"

	"github.com/iota-uz/hr-console/pkg/authz"
	"github.com/iota-uz/hr-console/pkg/composables"
)

const (
	KpisAuthzObject       = "hrm.kpis"
	ObjectivesAuthzObject = "hrm.objectives"
	hrmAuthzDomain        = "hrm"
)

var authorizeHRMFn = defaultAuthorizeHRM

func authorizeHRM(ctx context.Context, object, action string) error {
	return authorizeHRMFn(ctx, object, action)
}

// defaultAuthorizeHRM checks the caller subject against the authorizer the
// request pipeline installed. In-process callers without one are trusted.
func defaultAuthorizeHRM(ctx context.Context, object, action string) error {
	authorizer, ok := composables.UseAuthorizer(ctx)
	if !ok {
		return nil
	}
	req := authz.NewRequest(
		composables.UseAuthzSubject(ctx),
		hrmAuthzDomain,
		object,
		action,
	)
	return authorizer.Authorize(ctx, req)
}
