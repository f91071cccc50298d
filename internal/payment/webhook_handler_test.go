package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const webhookSecret = "whsec_test_0123456789abcdef"

// spyService records which operations the handlers reached.
type spyService struct {
	mu           sync.Mutex
	reconciled   []string
	expired      []string
	returned     []string
	repairs      int
	reconcileErr error
	result       payment.ReconcileResult
	returnResp   *payment.ReturnResponse
}

func (s *spyService) Reconcile(_ context.Context, reference, _ string) (payment.ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciled = append(s.reconciled, reference)
	if s.reconcileErr != nil {
		return "", s.reconcileErr
	}
	return s.result, nil
}

func (s *spyService) ConfirmReturn(_ context.Context, reference string) (*payment.ReturnResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returned = append(s.returned, reference)
	if reference == "" {
		return nil, errors.NewValidationFieldError("reference", "reference is required", errors.ErrCodeValidationFailed)
	}
	return s.returnResp, nil
}

func (s *spyService) ExpireCheckout(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = append(s.expired, reference)
	return nil
}

func (s *spyService) RepairCompleted(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairs++
	return 2, nil
}

func (s *spyService) touched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reconciled) + len(s.expired)
}

var _ = Describe("Webhook Handler", func() {
	var (
		spy     *spyService
		handler *payment.WebhookHandler
	)

	eventBody := func(eventType, reference string) []byte {
		body, err := json.Marshal(paymentgatewaytypes.Event{
			ID:            "evt_1",
			Type:          eventType,
			Reference:     reference,
			PaymentIntent: "pi_1",
			Created:       time.Now().Unix(),
		})
		Expect(err).NotTo(HaveOccurred())
		return body
	}

	deliver := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(paymentgateway.SignatureHeader, signature)
		}
		w := httptest.NewRecorder()
		handler.HandleGatewayEvent(w, req)
		return w
	}

	BeforeEach(func() {
		spy = &spyService{result: payment.ResultCompleted}
		handler = payment.NewWebhookHandler(&transport.BaseHandler{Logger: quietLogger()}, spy, webhookSecret, 5*time.Minute)
	})

	It("reconciles a signed completion event", func() {
		body := eventBody(paymentgatewaytypes.EventCheckoutCompleted, "cs_1")
		w := deliver(body, paymentgateway.Sign(webhookSecret, body, time.Now()))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp payment.WebhookResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Received).To(BeTrue())
		Expect(resp.Result).To(Equal(string(payment.ResultCompleted)))
		Expect(spy.reconciled).To(ConsistOf("cs_1"))
	})

	DescribeTable("rejects bad signatures without touching the store",
		func(sign func(body []byte) string) {
			body := eventBody(paymentgatewaytypes.EventCheckoutCompleted, "cs_1")
			w := deliver(body, sign(body))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(spy.touched()).To(Equal(0))
		},
		Entry("missing header", func([]byte) string { return "" }),
		Entry("wrong secret", func(body []byte) string {
			return paymentgateway.Sign("another-secret-entirely", body, time.Now())
		}),
		Entry("tampered body", func(body []byte) string {
			return paymentgateway.Sign(webhookSecret, append([]byte(" "), body...), time.Now())
		}),
		Entry("stale timestamp", func(body []byte) string {
			return paymentgateway.Sign(webhookSecret, body, time.Now().Add(-time.Hour))
		}),
		Entry("garbage", func([]byte) string { return "not-a-signature" }),
	)

	It("answers 500 when reconciliation fails so the gateway retries", func() {
		spy.reconcileErr = errors.ErrReconciliationFailed
		body := eventBody(paymentgatewaytypes.EventCheckoutCompleted, "cs_1")
		w := deliver(body, paymentgateway.Sign(webhookSecret, body, time.Now()))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})

	It("rejects a completion event without a reference", func() {
		body := eventBody(paymentgatewaytypes.EventCheckoutCompleted, "")
		w := deliver(body, paymentgateway.Sign(webhookSecret, body, time.Now()))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(spy.touched()).To(Equal(0))
	})

	It("marks an expired checkout", func() {
		body := eventBody(paymentgatewaytypes.EventCheckoutExpired, "cs_1")
		w := deliver(body, paymentgateway.Sign(webhookSecret, body, time.Now()))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(spy.expired).To(ConsistOf("cs_1"))
	})

	It("acknowledges event types it does not handle", func() {
		body := eventBody("charge.refunded", "cs_1")
		w := deliver(body, paymentgateway.Sign(webhookSecret, body, time.Now()))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(spy.touched()).To(Equal(0))
	})
})

var _ = Describe("Payment Handler", func() {
	var (
		spy     *spyService
		handler *payment.Handler
	)

	BeforeEach(func() {
		spy = &spyService{returnResp: &payment.ReturnResponse{Reference: "cs_1", ListingID: "l1", Status: payment.ReturnStatusConfirmed}}
		handler = payment.NewHandler(&transport.BaseHandler{Logger: quietLogger()}, spy)
	})

	It("reports the return status", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/return?reference=cs_1", nil)
		w := httptest.NewRecorder()
		handler.Return(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp payment.ReturnResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Status).To(Equal(payment.ReturnStatusConfirmed))
		Expect(spy.returned).To(ConsistOf("cs_1"))
	})

	It("rejects a return without a reference", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/return", nil)
		w := httptest.NewRecorder()
		handler.Return(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("runs the repair sweep", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/repair", nil)
		w := httptest.NewRecorder()
		handler.Repair(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp payment.RepairResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Published).To(Equal(2))
	})
})
