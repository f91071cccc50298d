package report_test

import (
	"github.com/frahmantamala/listing-marketplace/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Report", func() {
	DescribeTable("ListingIDFromURL",
		func(raw, want string) {
			Expect(report.ListingIDFromURL(raw)).To(Equal(want))
		},
		Entry("public page", "https://marketplace.example/annonces/abc-123", "abc-123"),
		Entry("trailing slash", "https://marketplace.example/annonces/abc-123/", "abc-123"),
		Entry("english path", "/listings/abc-123?ref=mail", "abc-123"),
		Entry("api path", "http://localhost:8080/api/v1/listings/abc-123", "abc-123"),
		Entry("surrounding spaces", "  /annonces/abc-123  ", "abc-123"),
		Entry("listing index", "https://marketplace.example/annonces/", ""),
		Entry("nested path", "https://marketplace.example/annonces/abc-123/photos", ""),
		Entry("other page", "https://marketplace.example/contact", ""),
		Entry("unparsable", "http://[::1", ""),
	)

	DescribeTable("CanMoveTo",
		func(from, to string, want bool) {
			r := &report.Report{Status: from}
			Expect(r.CanMoveTo(to)).To(Equal(want))
		},
		Entry("new to reviewed", report.StatusNew, report.StatusReviewed, true),
		Entry("new to resolved", report.StatusNew, report.StatusResolved, true),
		Entry("reviewed to resolved", report.StatusReviewed, report.StatusResolved, true),
		Entry("resolved to new", report.StatusResolved, report.StatusNew, false),
		Entry("reviewed to reviewed", report.StatusReviewed, report.StatusReviewed, false),
		Entry("unknown target", report.StatusNew, "archived", false),
	)
})
