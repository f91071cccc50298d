package paymentgateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type webhookSink struct {
	mu     sync.Mutex
	events []paymentgatewaytypes.Event
	errs   []error
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := paymentgateway.Verify("whsec", body, r.Header.Get(paymentgateway.SignatureHeader), time.Now(), 0); err != nil {
		s.errs = append(s.errs, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var event paymentgatewaytypes.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.errs = append(s.errs, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.events = append(s.events, event)
}

func (s *webhookSink) Events() []paymentgatewaytypes.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]paymentgatewaytypes.Event(nil), s.events...)
}

var _ = Describe("Simulator", func() {
	var (
		ctx    context.Context
		sink   *webhookSink
		server *httptest.Server
		sim    *paymentgateway.Simulator
	)

	request := func() *paymentgatewaytypes.CheckoutRequest {
		return &paymentgatewaytypes.CheckoutRequest{
			Amount:     4900,
			Currency:   "eur",
			SuccessURL: "http://localhost:8080/api/v1/payment/return?lang=fr",
			Metadata:   map[string]string{paymentgatewaytypes.MetadataListingID: "l1"},
		}
	}

	start := func(duplicate bool) {
		sim = paymentgateway.NewSimulator(paymentgateway.SimulatorConfig{
			Secret:            "whsec",
			WebhookURL:        server.URL,
			CompletionDelay:   10 * time.Millisecond,
			DuplicateDelivery: duplicate,
			MaxWorkers:        2,
		}, quietLogger())
	}

	BeforeEach(func() {
		ctx = context.Background()
		sink = &webhookSink{}
		server = httptest.NewServer(sink)
	})

	AfterEach(func() {
		sim.Shutdown()
		server.Close()
	})

	It("opens a checkout that redirects back with its reference", func() {
		start(false)
		checkout, err := sim.CreateCheckout(ctx, request())
		Expect(err).NotTo(HaveOccurred())
		Expect(checkout.Reference).To(HavePrefix("cs_sim_"))
		Expect(checkout.URL).To(ContainSubstring("reference=" + checkout.Reference))
		Expect(checkout.URL).To(ContainSubstring("lang=fr"))
		Expect(checkout.Status).To(Equal(paymentgatewaytypes.CheckoutStatusOpen))
	})

	It("completes the checkout and delivers a signed webhook", func() {
		start(false)
		checkout, err := sim.CreateCheckout(ctx, request())
		Expect(err).NotTo(HaveOccurred())

		Eventually(sink.Events).WithTimeout(2 * time.Second).Should(HaveLen(1))
		event := sink.Events()[0]
		Expect(event.Type).To(Equal(paymentgatewaytypes.EventCheckoutCompleted))
		Expect(event.Reference).To(Equal(checkout.Reference))
		Expect(event.PaymentIntent).To(HavePrefix("pi_sim_"))

		polled, err := sim.GetCheckout(ctx, checkout.Reference)
		Expect(err).NotTo(HaveOccurred())
		Expect(polled.IsComplete()).To(BeTrue())
		Expect(polled.PaymentIntent).To(Equal(event.PaymentIntent))
	})

	It("delivers the same event twice when asked to", func() {
		start(true)
		_, err := sim.CreateCheckout(ctx, request())
		Expect(err).NotTo(HaveOccurred())

		Eventually(sink.Events).WithTimeout(2 * time.Second).Should(HaveLen(2))
		events := sink.Events()
		Expect(events[0].ID).To(Equal(events[1].ID))
	})

	It("does not know foreign references", func() {
		start(false)
		_, err := sim.GetCheckout(ctx, "cs_live_1")
		Expect(err).To(MatchError(paymentgateway.ErrCheckoutNotFound))
	})
})
