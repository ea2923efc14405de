package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/dinarlabs/ledger/foundation/web"
)

// Deadline bounds every request with a timeout so a stalled handler
// cannot hold database work open indefinitely. Cancellation propagates
// through the request context: an admission cut off mid-flight rolls
// its transaction back and the reservation goes with it. The websocket
// feed is unaffected since it stops consulting the context after the
// upgrade.
func Deadline(timeout time.Duration) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
