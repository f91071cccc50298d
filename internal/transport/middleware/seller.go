package middleware

import (
	"net/http"

	"github.com/frahmantamala/listing-marketplace/internal"
	"github.com/frahmantamala/listing-marketplace/pkg/logger"
)

const SellerHeader = "X-Seller-ID"

// SellerContext records the seller id forwarded by the fronting proxy. The
// value is trusted as given; nothing here authenticates it.
func SellerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sellerID := r.Header.Get(SellerHeader)
		if sellerID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithSellerID(r.Context(), sellerID)
		ctx = logger.With(ctx, "seller_id", sellerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
