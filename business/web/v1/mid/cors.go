package mid

import (
	"context"
	"net/http"

	"github.com/dinarlabs/ledger/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource
// Sharing. The origin comes from configuration so a deployment can pin
// the api to its frontend host; "*" leaves it open. The method and
// header lists cover exactly what the v1 routes accept.
func Cors(origin string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Caches must key on the requesting origin once the allowed
			// origin is pinned.
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
