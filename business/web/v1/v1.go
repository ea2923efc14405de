// Package v1 represents types used by the web application for v1.
package v1

import (
	"context"
	"net/http"

	"github.com/dinarlabs/ledger/foundation/web"
)

// Envelope is the document wrapping every v1 response. Success reports
// whether the request was applied, Data carries the result and Message
// carries human readable error text on failure.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Respond wraps the provided data in a success envelope and sends it
// with the specified status code.
func Respond(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	return web.Respond(ctx, w, Envelope{Success: true, Data: data}, statusCode)
}

// RespondError sends a failure envelope with the specified status code.
func RespondError(ctx context.Context, w http.ResponseWriter, message string, fields map[string]string, statusCode int) error {
	return web.Respond(ctx, w, Envelope{Success: false, Message: message, Fields: fields}, statusCode)
}
