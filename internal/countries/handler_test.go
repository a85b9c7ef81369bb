package countries_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/film-payments/internal/countries"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Countries Handler", func() {
	var (
		handler *countries.Handler
		logger  *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		// Unreachable upstream: the handler must still answer 200 from the
		// fallback list.
		service := countries.NewService("http://127.0.0.1:1", time.Hour, logger)
		handler = countries.NewHandler(service, logger)
	})

	It("should answer 200 with the fallback list when the upstream is unreachable", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))

		var body struct {
			Success   bool                `json:"success"`
			Countries []countries.Country `json:"countries"`
			Cached    bool                `json:"cached"`
			Total     int                 `json:"total"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Success).To(BeTrue())
		Expect(body.Countries).NotTo(BeEmpty())
		Expect(body.Cached).To(BeFalse())
		Expect(body.Total).To(Equal(len(body.Countries)))
	})

	It("should mark the second response as cached", func() {
		first := httptest.NewRecorder()
		handler.List(first, httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil))

		second := httptest.NewRecorder()
		handler.List(second, httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil))

		var body struct {
			Cached bool `json:"cached"`
		}
		Expect(json.Unmarshal(second.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Cached).To(BeTrue())
	})
})
