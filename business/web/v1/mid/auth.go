package mid

import (
	"context"
	"net/http"

	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	"github.com/dinarlabs/ledger/foundation/web"
)

// Authenticate validates a bearer token from the Authorization header
// and stores the resulting claims in the context.
func Authenticate(a *auth.Auth) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			claims, err := a.Authenticate(r.Header.Get("authorization"))
			if err != nil {
				return errs.NewKinded(errs.Auth, err)
			}

			// Add claims to the context so they can be retrieved later.
			ctx = auth.SetClaims(ctx, claims)

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
