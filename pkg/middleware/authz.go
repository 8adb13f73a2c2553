package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/hr-console/pkg/authz"
	"github.com/iota-uz/hr-console/pkg/composables"
)

// WithAuthz installs the authorizer and the caller subject read from
// subjectHeader. Requests without the header run as the anonymous user.
func WithAuthz(authorizer authz.Authorizer, subjectHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if authorizer != nil {
				ctx = composables.WithAuthorizer(ctx, authorizer)
			}
			ctx = composables.WithAuthzSubject(ctx, strings.TrimSpace(r.Header.Get(subjectHeader)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
