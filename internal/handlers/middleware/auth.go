package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/tasktracker/internal/handlers/render"
	"github.com/nkiryanov/tasktracker/internal/handlers/userctx"
	"github.com/nkiryanov/tasktracker/internal/models"
)

type authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (models.Principal, error)
}

type Auth struct {
	authenticator authenticator
}

func NewAuth(a authenticator) *Auth {
	return &Auth{authenticator: a}
}

// Authenticate attaches principal to request context if request carries valid credentials
// Requests without them pass through unauthenticated, it's up to handler to decide
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := userctx.New(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests without principal in context
// Should be chained after Authenticate
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userctx.FromContext(r.Context()); !ok {
			render.ServiceError(w, "Authentication credentials were not provided or are invalid", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
