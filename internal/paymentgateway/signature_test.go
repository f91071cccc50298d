package paymentgateway_test

import (
	"fmt"
	"time"

	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Webhook signature", func() {
	var (
		body = []byte(`{"type":"checkout.completed","reference":"cs_1"}`)
		now  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	)

	It("verifies what it signs", func() {
		header := paymentgateway.Sign("whsec", body, now)
		Expect(header).To(HavePrefix(fmt.Sprintf("t=%d,v1=", now.Unix())))
		Expect(paymentgateway.Verify("whsec", body, header, now.Add(time.Minute), time.Minute*5)).To(Succeed())
	})

	It("accepts any matching v1 entry during a secret rotation", func() {
		oldHeader := paymentgateway.Sign("old", body, now)
		newHeader := paymentgateway.Sign("new", body, now)
		combined := newHeader + "," + oldHeader[len(fmt.Sprintf("t=%d,", now.Unix())):]

		Expect(paymentgateway.Verify("old", body, combined, now, 0)).To(Succeed())
		Expect(paymentgateway.Verify("new", body, combined, now, 0)).To(Succeed())
		Expect(paymentgateway.Verify("other", body, combined, now, 0)).To(MatchError(paymentgateway.ErrSignatureMismatch))
	})

	DescribeTable("rejections",
		func(secret string, payload []byte, header func() string, want error) {
			Expect(paymentgateway.Verify(secret, payload, header(), now, time.Minute*5)).To(MatchError(want))
		},
		Entry("no secret configured", "", body, func() string { return paymentgateway.Sign("whsec", body, now) }, paymentgateway.ErrNoSigningSecret),
		Entry("missing header", "whsec", body, func() string { return "" }, paymentgateway.ErrMissingSignature),
		Entry("garbage header", "whsec", body, func() string { return "garbage" }, paymentgateway.ErrMalformedSignature),
		Entry("no timestamp", "whsec", body, func() string { return "v1=abcd" }, paymentgateway.ErrMalformedSignature),
		Entry("no signature", "whsec", body, func() string { return fmt.Sprintf("t=%d", now.Unix()) }, paymentgateway.ErrMalformedSignature),
		Entry("stale timestamp", "whsec", body, func() string { return paymentgateway.Sign("whsec", body, now.Add(-time.Hour)) }, paymentgateway.ErrSignatureTimestamp),
		Entry("future timestamp", "whsec", body, func() string { return paymentgateway.Sign("whsec", body, now.Add(time.Hour)) }, paymentgateway.ErrSignatureTimestamp),
		Entry("tampered body", "whsec", []byte(`{"type":"checkout.completed","reference":"cs_2"}`), func() string { return paymentgateway.Sign("whsec", body, now) }, paymentgateway.ErrSignatureMismatch),
		Entry("wrong secret", "whsec", body, func() string { return paymentgateway.Sign("other", body, now) }, paymentgateway.ErrSignatureMismatch),
	)
})
