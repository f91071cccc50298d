package payment_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/core/events"
	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"github.com/frahmantamala/listing-marketplace/internal/memstore"
	"github.com/frahmantamala/listing-marketplace/internal/objectstore"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Payment Service", func() {
	var (
		ctx         context.Context
		store       *memstore.Store
		gateway     *fakeGateway
		recorder    *recordingPublisher
		listings    *listing.Service
		publisher   *flakyPublisher
		service     *payment.Service
		listingRepo *memstore.ListingRepository
		paymentRepo *memstore.PaymentRepository
	)

	draft := func(id string) {
		now := time.Now().UTC()
		Expect(listingRepo.Create(ctx, &listingDatamodel.Listing{
			ID:          id,
			ListingType: listing.TypeEquipment,
			Category:    "Pompage",
			Title:       "Listing " + id,
			Status:      listing.StatusDraft,
			CreatedAt:   now,
			UpdatedAt:   now,
		})).To(Succeed())
	}

	pending := func(listingID, reference string) {
		Expect(paymentRepo.Create(ctx, &paymentDatamodel.Payment{
			ListingID:         listingID,
			Amount:            4900,
			Currency:          "eur",
			Status:            payment.StatusPending,
			CheckoutReference: reference,
		})).To(Succeed())
	}

	completeAtGateway := func(listingID, reference, intent string) {
		gateway.Put(&paymentgatewaytypes.Checkout{
			Reference:     reference,
			Status:        paymentgatewaytypes.CheckoutStatusComplete,
			PaymentIntent: intent,
			Metadata:      map[string]string{paymentgatewaytypes.MetadataListingID: listingID},
		})
	}

	listingStatus := func(id string) string {
		l, err := listingRepo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return l.Status
	}

	paymentOf := func(reference string) *paymentDatamodel.Payment {
		p, err := paymentRepo.GetByReference(ctx, reference)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = memstore.New()
		listingRepo = store.Listings()
		paymentRepo = store.Payments()
		gateway = newFakeGateway()
		recorder = &recordingPublisher{}
		listings = listing.NewService(listingRepo, payment.CatalogGate{}, objectstore.NewMemoryStore(""), recorder, quietLogger())
		publisher = &flakyPublisher{next: listings}
		service = payment.NewService(paymentRepo, publisher, gateway, time.Second, quietLogger())
	})

	Describe("Reconcile", func() {
		It("completes the payment and publishes the listing", func() {
			draft("l1")
			pending("l1", "cs_1")

			result, err := service.Reconcile(ctx, "cs_1", "pi_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultCompleted))

			p := paymentOf("cs_1")
			Expect(p.Status).To(Equal(payment.StatusCompleted))
			Expect(*p.PaymentIntent).To(Equal("pi_1"))
			Expect(p.CompletedAt).NotTo(BeNil())
			Expect(listingStatus("l1")).To(Equal(listing.StatusPublished))
		})

		It("ignores an unknown reference", func() {
			result, err := service.Reconcile(ctx, "cs_unknown", "pi_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultNoop))
			Expect(publisher.calls).To(Equal(0))
		})

		It("reports a replay as already completed and keeps the first intent", func() {
			draft("l1")
			pending("l1", "cs_1")

			_, err := service.Reconcile(ctx, "cs_1", "pi_1")
			Expect(err).NotTo(HaveOccurred())
			result, err := service.Reconcile(ctx, "cs_1", "pi_other")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultAlreadyCompleted))

			Expect(*paymentOf("cs_1").PaymentIntent).To(Equal("pi_1"))
			Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(1))
		})

		It("records an intent that arrives after completion", func() {
			draft("l1")
			pending("l1", "cs_1")

			_, err := service.Reconcile(ctx, "cs_1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(paymentOf("cs_1").PaymentIntent).To(BeNil())

			_, err = service.Reconcile(ctx, "cs_1", "pi_late")
			Expect(err).NotTo(HaveOccurred())
			Expect(*paymentOf("cs_1").PaymentIntent).To(Equal("pi_late"))
		})

		It("leaves a second payment for an already paid listing pending", func() {
			draft("l1")
			pending("l1", "cs_1")
			pending("l1", "cs_2")

			_, err := service.Reconcile(ctx, "cs_1", "pi_1")
			Expect(err).NotTo(HaveOccurred())

			result, err := service.Reconcile(ctx, "cs_2", "pi_2")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultDuplicatePayment))
			Expect(paymentOf("cs_2").Status).To(Equal(payment.StatusPending))
			Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(1))
		})

		It("returns a reconciliation failure when publish fails after the payment write", func() {
			draft("l1")
			pending("l1", "cs_1")
			publisher.SetFailing(true)

			_, err := service.Reconcile(ctx, "cs_1", "pi_1")
			Expect(err).To(MatchError(errors.ErrReconciliationFailed))
			Expect(paymentOf("cs_1").Status).To(Equal(payment.StatusCompleted))
			Expect(listingStatus("l1")).To(Equal(listing.StatusDraft))

			publisher.SetFailing(false)
			result, err := service.Reconcile(ctx, "cs_1", "pi_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultAlreadyCompleted))
			Expect(listingStatus("l1")).To(Equal(listing.StatusPublished))
		})

		It("tolerates a completed payment whose listing is gone", func() {
			pending("ghost", "cs_ghost")

			result, err := service.Reconcile(ctx, "cs_ghost", "pi_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(payment.ResultCompleted))
		})

		It("converges to one publication under concurrent deliveries on both channels", func() {
			draft("l1")
			pending("l1", "cs_1")
			completeAtGateway("l1", "cs_1", "pi_1")

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.Reconcile(ctx, "cs_1", "pi_1")
					Expect(err).NotTo(HaveOccurred())
				}()
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					resp, err := service.ConfirmReturn(ctx, "cs_1")
					Expect(err).NotTo(HaveOccurred())
					Expect(resp.Status).To(Equal(payment.ReturnStatusConfirmed))
				}()
			}
			wg.Wait()

			Expect(paymentOf("cs_1").Status).To(Equal(payment.StatusCompleted))
			Expect(listingStatus("l1")).To(Equal(listing.StatusPublished))
			Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(1))
		})

		It("converges under randomized interleavings with unrelated sweeps running", func() {
			rng := rand.New(rand.NewSource(GinkgoRandomSeed()))
			expired := time.Now().UTC().Add(-time.Hour)
			for _, id := range []string{"old1", "old2", "old3"} {
				Expect(listingRepo.Create(ctx, &listingDatamodel.Listing{
					ID:          id,
					ListingType: listing.TypePart,
					Category:    "Pompage",
					Title:       "Listing " + id,
					Status:      listing.StatusPublished,
					ExpiresAt:   &expired,
				})).To(Succeed())
			}
			sweeper := listing.NewSweeper(listingRepo, recorder, quietLogger(), 1)

			for round := 0; round < 5; round++ {
				id := fmt.Sprintf("r%d", round)
				ref := "cs_" + id
				draft(id)
				pending(id, ref)
				completeAtGateway(id, ref, "pi_"+id)

				var wg sync.WaitGroup
				deliveries := 2 + rng.Intn(8)
				for i := 0; i < deliveries; i++ {
					delay := time.Duration(rng.Intn(500)) * time.Microsecond
					viaReturn := rng.Intn(2) == 0
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						time.Sleep(delay)
						if viaReturn {
							_, err := service.ConfirmReturn(ctx, ref)
							Expect(err).NotTo(HaveOccurred())
							return
						}
						_, err := service.Reconcile(ctx, ref, "pi_"+id)
						Expect(err).NotTo(HaveOccurred())
					}()
				}
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := sweeper.Sweep(ctx)
					Expect(err).NotTo(HaveOccurred())
				}()
				wg.Wait()

				Expect(paymentOf(ref).Status).To(Equal(payment.StatusCompleted))
				Expect(listingStatus(id)).To(Equal(listing.StatusPublished))
			}

			Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(5))
			Expect(recorder.Count(events.EventTypeListingExpired)).To(Equal(3))
		})

		It("lets only one of two payments for the same listing complete under a race", func() {
			draft("l1")
			pending("l1", "cs_a")
			pending("l1", "cs_b")

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				results []payment.ReconcileResult
			)
			for _, ref := range []string{"cs_a", "cs_b"} {
				wg.Add(1)
				go func(ref string) {
					defer GinkgoRecover()
					defer wg.Done()
					r, err := service.Reconcile(ctx, ref, "")
					Expect(err).NotTo(HaveOccurred())
					mu.Lock()
					results = append(results, r)
					mu.Unlock()
				}(ref)
			}
			wg.Wait()

			Expect(results).To(ConsistOf(payment.ResultCompleted, payment.ResultDuplicatePayment))
			Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(1))
		})
	})

	Describe("ConfirmReturn", func() {
		It("requires a reference", func() {
			_, err := service.ConfirmReturn(ctx, "")
			var appErr *errors.AppError
			Expect(goerrors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})

		It("reports processing when the gateway cannot be reached", func() {
			gateway.SetFailing(true)

			resp, err := service.ConfirmReturn(ctx, "cs_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(payment.ReturnStatusProcessing))
		})

		It("reports pending while the checkout is open", func() {
			draft("l1")
			pending("l1", "cs_1")
			gateway.Put(&paymentgatewaytypes.Checkout{
				Reference: "cs_1",
				Status:    paymentgatewaytypes.CheckoutStatusOpen,
				Metadata:  map[string]string{paymentgatewaytypes.MetadataListingID: "l1"},
			})

			resp, err := service.ConfirmReturn(ctx, "cs_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(payment.ReturnStatusPending))
			Expect(resp.ListingID).To(Equal("l1"))
			Expect(listingStatus("l1")).To(Equal(listing.StatusDraft))
		})

		It("confirms and publishes a completed checkout", func() {
			draft("l1")
			pending("l1", "cs_1")
			completeAtGateway("l1", "cs_1", "pi_1")

			resp, err := service.ConfirmReturn(ctx, "cs_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(payment.ReturnStatusConfirmed))
			Expect(resp.ListingID).To(Equal("l1"))
			Expect(listingStatus("l1")).To(Equal(listing.StatusPublished))
		})

		It("reports processing when the local write fails", func() {
			draft("l1")
			pending("l1", "cs_1")
			completeAtGateway("l1", "cs_1", "pi_1")
			publisher.SetFailing(true)

			resp, err := service.ConfirmReturn(ctx, "cs_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(payment.ReturnStatusProcessing))
		})
	})

	Describe("ExpireCheckout", func() {
		It("fails a pending payment but never a completed one", func() {
			draft("l1")
			pending("l1", "cs_open")
			pending("l1", "cs_paid")
			_, err := service.Reconcile(ctx, "cs_paid", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.ExpireCheckout(ctx, "cs_open")).To(Succeed())
			Expect(service.ExpireCheckout(ctx, "cs_paid")).To(Succeed())

			Expect(paymentOf("cs_open").Status).To(Equal(payment.StatusFailed))
			Expect(paymentOf("cs_paid").Status).To(Equal(payment.StatusCompleted))
		})
	})

	Describe("RepairCompleted", func() {
		It("publishes drafts left behind a completed payment", func() {
			draft("l1")
			draft("l2")
			pending("l1", "cs_1")
			pending("l2", "cs_2")

			publisher.SetFailing(true)
			_, err := service.Reconcile(ctx, "cs_1", "")
			Expect(err).To(HaveOccurred())
			publisher.SetFailing(false)

			repaired, err := service.RepairCompleted(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(repaired).To(Equal(1))
			Expect(listingStatus("l1")).To(Equal(listing.StatusPublished))
			Expect(listingStatus("l2")).To(Equal(listing.StatusDraft))

			repaired, err = service.RepairCompleted(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(repaired).To(Equal(0))
		})
	})
})

var _ = Describe("Checkout flow", func() {
	It("publishes a listing once its checkout completes and ignores redelivery", func() {
		ctx := context.Background()
		store := memstore.New()
		paymentRepo := store.Payments()
		listingRepo := store.Listings()
		gateway := newFakeGateway()
		recorder := &recordingPublisher{}

		gate := payment.NewGate(errors.PaymentConfig{
			Mode:               errors.PaymentModeCheckout,
			ListingPriceAmount: 4900,
			Currency:           "eur",
			SuccessURL:         "http://localhost:8080/api/v1/payment/return",
			CancelURL:          "http://localhost:8080/api/v1/wizard",
		}, gateway, paymentRepo, quietLogger())
		listings := listing.NewService(listingRepo, gate, objectstore.NewMemoryStore(""), recorder, quietLogger())
		service := payment.NewService(paymentRepo, listings, gateway, time.Second, quietLogger())

		l, err := listings.SaveBasics(ctx, "", listing.BasicsDTO{
			ListingType: listing.TypeEquipment,
			Category:    "Pompage",
			Title:       "Pompe centrifuge",
		}, "seller-1")
		Expect(err).NotTo(HaveOccurred())
		_, err = listings.SaveDetails(ctx, l.ID, listing.DetailsDTO{
			Summary:     "Pompe révisée",
			Description: "Pompe centrifuge inox révisée en atelier.",
		})
		Expect(err).NotTo(HaveOccurred())
		amount := int64(850000)
		_, err = listings.SavePricing(ctx, l.ID, listing.PricingDTO{
			PriceAmount:  &amount,
			Location:     "Lyon",
			ContactEmail: "atelier@example.com",
		})
		Expect(err).NotTo(HaveOccurred())

		submitted, err := listings.Submit(ctx, l.ID, "seller-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(submitted.Status).To(Equal("payment_required"))
		Expect(submitted.Reference).NotTo(BeEmpty())
		Expect(submitted.RedirectURL).NotTo(BeEmpty())
		reference := submitted.Reference

		pendingPayment, err := paymentRepo.GetByReference(ctx, reference)
		Expect(err).NotTo(HaveOccurred())
		Expect(pendingPayment.Status).To(Equal(payment.StatusPending))
		Expect(pendingPayment.ListingID).To(Equal(l.ID))

		stillDraft, err := listingRepo.GetByID(ctx, l.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stillDraft.Status).To(Equal(listing.StatusDraft))

		result, err := service.Reconcile(ctx, reference, "pi_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(payment.ResultCompleted))

		paid, err := paymentRepo.GetByReference(ctx, reference)
		Expect(err).NotTo(HaveOccurred())
		Expect(paid.Status).To(Equal(payment.StatusCompleted))
		Expect(*paid.PaymentIntent).To(Equal("pi_1"))
		Expect(paid.CompletedAt).NotTo(BeNil())

		published, err := listingRepo.GetByID(ctx, l.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(published.Status).To(Equal(listing.StatusPublished))
		Expect(published.PublishedAt).NotTo(BeNil())
		Expect(published.ExpiresAt.Sub(*published.PublishedAt)).To(Equal(listing.PublicationPeriod))

		result, err = service.Reconcile(ctx, reference, "pi_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(payment.ResultAlreadyCompleted))

		gateway.Put(&paymentgatewaytypes.Checkout{
			Reference:     reference,
			Status:        paymentgatewaytypes.CheckoutStatusComplete,
			PaymentIntent: "pi_1",
			Metadata:      map[string]string{paymentgatewaytypes.MetadataListingID: l.ID},
		})
		returned, err := service.ConfirmReturn(ctx, reference)
		Expect(err).NotTo(HaveOccurred())
		Expect(returned.Status).To(Equal(payment.ReturnStatusConfirmed))

		repaid, err := paymentRepo.GetByReference(ctx, reference)
		Expect(err).NotTo(HaveOccurred())
		Expect(repaid.Status).To(Equal(payment.StatusCompleted))
		Expect(*repaid.PaymentIntent).To(Equal("pi_1"))
		Expect(repaid.CompletedAt.Equal(*paid.CompletedAt)).To(BeTrue())

		republished, err := listingRepo.GetByID(ctx, l.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(republished.Status).To(Equal(listing.StatusPublished))
		Expect(republished.PublishedAt.Equal(*published.PublishedAt)).To(BeTrue())
		Expect(republished.ExpiresAt.Equal(*published.ExpiresAt)).To(BeTrue())

		Expect(recorder.Count(events.EventTypeListingPublished)).To(Equal(1))
	})
})
