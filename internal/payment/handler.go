package payment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/listing-marketplace/internal/transport"
)

type ServiceAPI interface {
	Reconcile(ctx context.Context, reference, paymentIntent string) (ReconcileResult, error)
	ConfirmReturn(ctx context.Context, reference string) (*ReturnResponse, error)
	ExpireCheckout(ctx context.Context, reference string) error
	RepairCompleted(ctx context.Context) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		PaymentService: paymentService,
	}
}

// Return handles GET /api/v1/payment/return?reference=...
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")

	resp, err := h.PaymentService.ConfirmReturn(r.Context(), reference)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("Return: seller came back from checkout",
		"reference", resp.Reference,
		"listing_id", resp.ListingID,
		"status", resp.Status)

	h.WriteJSON(w, http.StatusOK, resp)
}

// Repair handles POST /api/v1/admin/repair
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	published, err := h.PaymentService.RepairCompleted(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RepairResponse{Published: published})
}
