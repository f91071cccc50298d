package payment_test

import (
	"context"
	goerrors "errors"

	"github.com/frahmantamala/listing-marketplace/internal"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/memstore"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Payment Gate", func() {
	var (
		ctx     context.Context
		repo    *memstore.PaymentRepository
		gateway *fakeGateway
		cfg     internal.PaymentConfig
	)

	intent := paymentgatewaytypes.CheckoutIntent{ListingID: "l1", UserID: "seller-1", Title: "Pompe"}

	BeforeEach(func() {
		ctx = context.Background()
		repo = memstore.New().Payments()
		gateway = newFakeGateway()
		cfg = internal.PaymentConfig{
			Mode:               internal.PaymentModeCheckout,
			ListingPriceAmount: 4900,
			Currency:           "eur",
			SuccessURL:         "http://localhost:8080/api/v1/payment/return",
			CancelURL:          "http://localhost:8080/api/v1/wizard",
		}
	})

	It("publishes without checkout in catalog mode", func() {
		cfg.Mode = internal.PaymentModeCatalog
		gate := payment.NewGate(cfg, gateway, repo, quietLogger())

		requirement, err := gate.Require(ctx, intent)
		Expect(err).NotTo(HaveOccurred())
		Expect(requirement).To(Equal(paymentgatewaytypes.PaymentNotRequired{}))
		Expect(gateway.created).To(BeEmpty())
	})

	It("opens a checkout and records the pending payment", func() {
		gate := payment.NewGate(cfg, gateway, repo, quietLogger())

		requirement, err := gate.Require(ctx, intent)
		Expect(err).NotTo(HaveOccurred())

		required, ok := requirement.(paymentgatewaytypes.PaymentRequired)
		Expect(ok).To(BeTrue())
		Expect(required.Reference).To(Equal("cs_test_l1"))
		Expect(required.RedirectURL).To(Equal("https://pay.example/cs_test_l1"))

		Expect(gateway.created).To(HaveLen(1))
		Expect(gateway.created[0].Amount).To(Equal(int64(4900)))
		Expect(gateway.created[0].Metadata).To(HaveKeyWithValue(paymentgatewaytypes.MetadataListingID, "l1"))

		p, err := repo.GetByReference(ctx, "cs_test_l1")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status).To(Equal(payment.StatusPending))
		Expect(p.ListingID).To(Equal("l1"))
		Expect(p.Amount).To(Equal(int64(4900)))
	})

	It("surfaces a gateway outage as an upstream error and records nothing", func() {
		gateway.SetFailing(true)
		gate := payment.NewGate(cfg, gateway, repo, quietLogger())

		_, err := gate.Require(ctx, intent)
		var appErr *internal.AppError
		Expect(goerrors.As(err, &appErr)).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeExternal))

		_, err = repo.GetByReference(ctx, "cs_test_l1")
		Expect(err).To(MatchError(payment.ErrPaymentNotFound))
	})
})
