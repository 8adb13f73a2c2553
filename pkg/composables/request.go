package composables

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/pkg/authz"
	"github.com/iota-uz/hr-console/pkg/constants"
)

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the request logger, or the standard logger outside a request.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithAuthorizer(ctx context.Context, a authz.Authorizer) context.Context {
	return context.WithValue(ctx, constants.AuthzKey, a)
}

// UseAuthorizer returns the authorizer installed by the request pipeline.
func UseAuthorizer(ctx context.Context) (authz.Authorizer, bool) {
	a, ok := ctx.Value(constants.AuthzKey).(authz.Authorizer)
	return a, ok && a != nil
}

func WithAuthzSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, constants.AuthzSubject, authz.NormalizeSubject(subject))
}

// UseAuthzSubject returns the caller subject, anonymous when none was set.
func UseAuthzSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(constants.AuthzSubject).(string); ok && subject != "" {
		return subject
	}
	return authz.SubjectForUser("")
}
