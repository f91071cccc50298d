package paymentgateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		client   *paymentgateway.Client
		authSeen string
		created  paymentgatewaytypes.CheckoutRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/checkouts", func(w http.ResponseWriter, r *http.Request) {
			authSeen = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&created)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(paymentgatewaytypes.Checkout{
				Reference: "cs_live_1",
				URL:       "https://pay.example/cs_live_1",
				Status:    paymentgatewaytypes.CheckoutStatusOpen,
				Amount:    created.Amount,
				Currency:  created.Currency,
			})
		})
		mux.HandleFunc("/v1/checkouts/cs_live_1", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(paymentgatewaytypes.Checkout{
				Reference:     "cs_live_1",
				URL:           "https://pay.example/cs_live_1",
				Status:        paymentgatewaytypes.CheckoutStatusComplete,
				PaymentIntent: "pi_1",
			})
		})
		mux.HandleFunc("/v1/checkouts/cs_broken", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		server = httptest.NewServer(mux)
		client = paymentgateway.NewClient(paymentgateway.Config{BaseURL: server.URL + "/", APIKey: "sk_test"}, quietLogger())
	})

	AfterEach(func() {
		server.Close()
	})

	It("creates a checkout with the bearer key", func() {
		checkout, err := client.CreateCheckout(ctx, &paymentgatewaytypes.CheckoutRequest{
			Amount:   4900,
			Currency: "eur",
			Metadata: map[string]string{paymentgatewaytypes.MetadataListingID: "l1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(checkout.Reference).To(Equal("cs_live_1"))
		Expect(authSeen).To(Equal("Bearer sk_test"))
		Expect(created.Metadata).To(HaveKeyWithValue(paymentgatewaytypes.MetadataListingID, "l1"))
	})

	It("validates before calling out", func() {
		_, err := client.CreateCheckout(ctx, &paymentgatewaytypes.CheckoutRequest{Amount: 4900, Currency: "eur"})
		Expect(err).To(MatchError(ContainSubstring("listing_id")))
	})

	It("reads a completed checkout", func() {
		checkout, err := client.GetCheckout(ctx, "cs_live_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(checkout.IsComplete()).To(BeTrue())
		Expect(checkout.PaymentIntent).To(Equal("pi_1"))
	})

	It("maps 404 to ErrCheckoutNotFound", func() {
		_, err := client.GetCheckout(ctx, "cs_unknown")
		Expect(err).To(MatchError(paymentgateway.ErrCheckoutNotFound))
	})

	It("surfaces other statuses as errors", func() {
		_, err := client.GetCheckout(ctx, "cs_broken")
		Expect(err).To(MatchError(ContainSubstring("502")))
	})
})
