package payment

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/transport"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	secret         string
	tolerance      time.Duration
	now            func() time.Time
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, secret string, tolerance time.Duration) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
		secret:         secret,
		tolerance:      tolerance,
		now:            time.Now,
	}
}

// HandleGatewayEvent handles POST /api/v1/payment/webhook. The signature is
// checked over the raw body before anything is decoded or stored. A non-2xx
// answer asks the gateway to redeliver.
func (h *WebhookHandler) HandleGatewayEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.Logger.Error("webhook: failed to read body", "error", err)
		h.HandleError(w, errors.NewValidationError("unreadable request body", errors.ErrCodeValidationFailed))
		return
	}

	header := r.Header.Get(paymentgateway.SignatureHeader)
	if err := paymentgateway.Verify(h.secret, body, header, h.now(), h.tolerance); err != nil {
		h.Logger.Warn("webhook: signature rejected", "error", err, "remote_addr", r.RemoteAddr)
		h.HandleError(w, errors.ErrSignatureRejected)
		return
	}

	var event paymentgatewaytypes.Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.Logger.Error("webhook: invalid event payload", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid event payload", errors.ErrCodeValidationFailed))
		return
	}

	h.Logger.Info("webhook: gateway event received",
		"event_id", event.ID,
		"event_type", event.Type,
		"reference", event.Reference)

	switch event.Type {
	case paymentgatewaytypes.EventCheckoutCompleted:
		if event.Reference == "" {
			h.HandleError(w, errors.NewValidationFieldError("reference", "reference is required", errors.ErrCodeValidationFailed))
			return
		}
		result, err := h.paymentService.Reconcile(r.Context(), event.Reference, event.PaymentIntent)
		if err != nil {
			h.Logger.Error("webhook: reconcile failed, gateway will retry",
				"error", err,
				"event_id", event.ID,
				"reference", event.Reference)
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true, Result: string(result)})

	case paymentgatewaytypes.EventCheckoutExpired:
		if err := h.paymentService.ExpireCheckout(r.Context(), event.Reference); err != nil {
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})

	default:
		h.Logger.Debug("webhook: event type ignored", "event_type", event.Type)
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
	}
}
