package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/listing-marketplace/internal"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// Recover turns a handler panic into a 500 carrying the standard error body.
// The panic value stays in the log; clients only see a generic message.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panicked", append(panicAttrs(r),
					"panic", rec,
					"stack", string(debug.Stack()))...)

				status, body := internal.NewInternalError("Internal server error", nil).ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// panicAttrs names the listing or payment the failed request was about.
func panicAttrs(r *http.Request) []any {
	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"route", routePattern(r),
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if id := rctx.URLParam("id"); id != "" {
			attrs = append(attrs, "listing_id", id)
		}
	}
	if ref := r.URL.Query().Get("reference"); ref != "" {
		attrs = append(attrs, "reference", ref)
	}
	if seller := internal.SellerIDFromContext(r.Context()); seller != "" {
		attrs = append(attrs, "seller_id", seller)
	}
	return attrs
}
