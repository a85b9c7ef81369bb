package currency_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/film-payments/internal/currency"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RateService", func() {
	var (
		server     *httptest.Server
		service    *currency.RateService
		logger     *slog.Logger
		fetchCount int32
		rate       float64
		failing    bool
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		rate = 0.92
		failing = false
		atomic.StoreInt32(&fetchCount, 0)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&fetchCount, 1)
			if failing {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			code := r.URL.Query().Get("to")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"rates":{"%s":%v}}`, code, rate)
		}))

		service = currency.NewRateService(server.URL, 24*time.Hour, logger)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Convert", func() {
		It("should price the USD amount in the target currency", func() {
			conv := service.Convert(context.Background(), 10, "EUR")
			Expect(conv.Currency).To(Equal("EUR"))
			Expect(conv.Symbol).To(Equal("€"))
			Expect(conv.Rate).To(BeNumerically("~", 0.92, 1e-9))
			Expect(conv.Amount).To(BeNumerically("~", 9.2, 1e-9))
			Expect(conv.AmountUSD).To(BeNumerically("==", 10))
			Expect(conv.FellBack).To(BeFalse())
		})

		It("should short-circuit USD without touching the upstream", func() {
			conv := service.Convert(context.Background(), 10, "USD")
			Expect(conv.Rate).To(BeNumerically("==", 1.0))
			Expect(conv.Amount).To(BeNumerically("==", 10))
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(0)))
		})

		It("should treat an empty code as USD", func() {
			conv := service.Convert(context.Background(), 10, "")
			Expect(conv.Currency).To(Equal("USD"))
			Expect(conv.Symbol).To(Equal("$"))
		})

		Context("when the upstream fails", func() {
			BeforeEach(func() {
				failing = true
			})

			It("should fall back to USD at rate 1.0", func() {
				conv := service.Convert(context.Background(), 10, "EUR")
				Expect(conv.Currency).To(Equal("USD"))
				Expect(conv.Symbol).To(Equal("$"))
				Expect(conv.Rate).To(BeNumerically("==", 1.0))
				Expect(conv.Amount).To(BeNumerically("==", 10))
				Expect(conv.FellBack).To(BeTrue())
			})
		})
	})

	Describe("caching", func() {
		It("should serve repeat conversions from cache", func() {
			service.Convert(context.Background(), 10, "EUR")
			service.Convert(context.Background(), 20, "EUR")
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(1)))
		})

		It("should refetch once the validity window elapses", func() {
			current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
			service.WithClock(func() time.Time { return current })

			service.Convert(context.Background(), 10, "EUR")
			current = current.Add(12 * time.Hour)
			service.Convert(context.Background(), 10, "EUR")
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(1)))

			current = current.Add(13 * time.Hour)
			service.Convert(context.Background(), 10, "EUR")
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(2)))
		})

		It("should refetch when the calendar day rolls over before the TTL", func() {
			current := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
			service.WithClock(func() time.Time { return current })

			service.Convert(context.Background(), 10, "EUR")
			current = current.Add(2 * time.Hour) // now 2026-03-11, TTL not elapsed
			service.Convert(context.Background(), 10, "EUR")
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(2)))
		})

		It("should cache currencies independently", func() {
			service.Convert(context.Background(), 10, "EUR")
			service.Convert(context.Background(), 10, "GBP")
			Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(2)))
		})
	})
})
