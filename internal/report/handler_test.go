package report_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/listing-marketplace/internal/memstore"
	"github.com/frahmantamala/listing-marketplace/internal/report"
	"github.com/frahmantamala/listing-marketplace/internal/transport"
	"github.com/frahmantamala/listing-marketplace/internal/transport/middleware"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Report Handler", func() {
	var router *chi.Mux

	const body = `{"listing_url":"/annonces/l1","reason":"misleading","description":"Photos show a different machine."}`

	send := func(method, path, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		lg := quietLogger()
		h := report.NewHandler(transport.NewBaseHandler(lg), report.NewService(memstore.New().Reports(), lg))
		limiter := middleware.NewRateLimiter(60, 2, lg)

		router = chi.NewRouter()
		router.With(limiter.Limit).Post("/reports", h.CreateReport)
		router.Get("/reports", h.ListReports)
		router.Patch("/reports/{id}/status", h.UpdateStatus)
	})

	It("files a report and lists it", func() {
		rec := send(http.MethodPost, "/reports", body)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created report.Report
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(*created.ListingID).To(Equal("l1"))

		rec = send(http.MethodGet, "/reports?status=new", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var listed report.ReportsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &listed)).To(Succeed())
		Expect(listed.Reports).To(HaveLen(1))
		Expect(listed.Limit).To(Equal(50))
	})

	It("rejects a malformed body", func() {
		rec := send(http.MethodPost, "/reports", "{")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("throttles a client past its burst", func() {
		Expect(send(http.MethodPost, "/reports", body).Code).To(Equal(http.StatusCreated))
		Expect(send(http.MethodPost, "/reports", body).Code).To(Equal(http.StatusCreated))

		rec := send(http.MethodPost, "/reports", body)
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).To(Equal("60"))
	})

	It("updates status forward and refuses backwards", func() {
		rec := send(http.MethodPost, "/reports", body)
		var created report.Report
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		path := fmt.Sprintf("/reports/%d/status", created.ID)

		Expect(send(http.MethodPatch, path, `{"status":"resolved"}`).Code).To(Equal(http.StatusOK))
		Expect(send(http.MethodPatch, path, `{"status":"reviewed"}`).Code).To(Equal(http.StatusConflict))
	})

	It("maps a missing report to 404 and a bad id to 400", func() {
		Expect(send(http.MethodPatch, "/reports/42/status", `{"status":"reviewed"}`).Code).To(Equal(http.StatusNotFound))
		Expect(send(http.MethodPatch, "/reports/abc/status", `{"status":"reviewed"}`).Code).To(Equal(http.StatusBadRequest))
	})
})
