package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/film-payments/internal"
)

// Conversion is the USD price of a film expressed in the buyer's currency.
// When the rate lookup fails the conversion falls back to USD at rate 1.0 so
// the displayed and charged amounts always agree.
type Conversion struct {
	Currency  string  `json:"currency"`
	Symbol    string  `json:"symbol"`
	Rate      float64 `json:"rate"`
	AmountUSD float64 `json:"amount_usd"`
	Amount    float64 `json:"amount"`
	FellBack  bool    `json:"-"`
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"BRL": "R$",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"MXN": "$",
	"ARS": "$",
}

func symbolFor(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return strings.ToUpper(code)
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// RateService fetches USD→target rates and caches them for a validity window
// keyed by (currency, calendar day). Concurrent refreshes of an expired entry
// are benign: both fetch the same day's rate and the last writer wins.
type RateService struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]cachedRate
}

func NewRateService(baseURL string, ttl time.Duration, logger *slog.Logger) *RateService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RateService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		cache:   make(map[string]cachedRate),
	}
}

// WithClock overrides the clock, for TTL tests.
func (s *RateService) WithClock(now func() time.Time) *RateService {
	s.now = now
	return s
}

// Convert prices amountUSD in the target currency. It never fails: an
// unavailable rate degrades to a USD conversion rather than blocking checkout.
func (s *RateService) Convert(ctx context.Context, amountUSD float64, currencyCode string) Conversion {
	code := strings.ToUpper(currencyCode)
	if code == "" || code == "USD" {
		return Conversion{
			Currency:  "USD",
			Symbol:    "$",
			Rate:      1.0,
			AmountUSD: amountUSD,
			Amount:    amountUSD,
		}
	}

	rate, err := s.rateFor(ctx, code)
	if err != nil {
		s.logger.Warn("exchange rate unavailable, falling back to USD",
			"currency", code,
			"error", err)
		return Conversion{
			Currency:  "USD",
			Symbol:    "$",
			Rate:      1.0,
			AmountUSD: amountUSD,
			Amount:    amountUSD,
			FellBack:  true,
		}
	}

	return Conversion{
		Currency:  code,
		Symbol:    symbolFor(code),
		Rate:      rate,
		AmountUSD: amountUSD,
		Amount:    amountUSD * rate,
	}
}

func (s *RateService) rateFor(ctx context.Context, code string) (float64, error) {
	key := s.cacheKey(code)

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
		return entry.rate, nil
	}

	rate, err := s.fetchRate(ctx, code)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.cache[key] = cachedRate{rate: rate, fetchedAt: s.now()}
	s.mu.Unlock()

	s.logger.Info("exchange rate fetched",
		"currency", code,
		"rate", rate)

	return rate, nil
}

// cacheKey includes the calendar day so a long-lived process never serves
// yesterday's rate even when the TTL has not elapsed.
func (s *RateService) cacheKey(code string) string {
	return fmt.Sprintf("%s_%s", code, s.now().UTC().Format("2006-01-02"))
}

func (s *RateService) fetchRate(ctx context.Context, code string) (float64, error) {
	ctx, cancel := internal.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/latest?from=USD&to=%s", s.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, ok := payload.Rates[code]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no rate for %s in response", code)
	}

	return rate, nil
}
