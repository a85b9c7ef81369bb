package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/film-payments/internal"
)

type Country struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	CurrencySymbol string `json:"currencySymbol"`
	Flag           string `json:"flag"`
	Region         string `json:"region"`
}

// fallbackCountries is served when the upstream directory is unreachable.
// Kept alphabetical by name; List re-sorts defensively anyway.
var fallbackCountries = []Country{
	{Code: "AR", Name: "Argentina", Currency: "ARS", CurrencySymbol: "$", Flag: "🇦🇷", Region: "Americas"},
	{Code: "AU", Name: "Australia", Currency: "AUD", CurrencySymbol: "A$", Flag: "🇦🇺", Region: "Oceania"},
	{Code: "BR", Name: "Brazil", Currency: "BRL", CurrencySymbol: "R$", Flag: "🇧🇷", Region: "Americas"},
	{Code: "CA", Name: "Canada", Currency: "CAD", CurrencySymbol: "C$", Flag: "🇨🇦", Region: "Americas"},
	{Code: "FR", Name: "France", Currency: "EUR", CurrencySymbol: "€", Flag: "🇫🇷", Region: "Europe"},
	{Code: "DE", Name: "Germany", Currency: "EUR", CurrencySymbol: "€", Flag: "🇩🇪", Region: "Europe"},
	{Code: "IT", Name: "Italy", Currency: "EUR", CurrencySymbol: "€", Flag: "🇮🇹", Region: "Europe"},
	{Code: "MX", Name: "Mexico", Currency: "MXN", CurrencySymbol: "$", Flag: "🇲🇽", Region: "Americas"},
	{Code: "NL", Name: "Netherlands", Currency: "EUR", CurrencySymbol: "€", Flag: "🇳🇱", Region: "Europe"},
	{Code: "PT", Name: "Portugal", Currency: "EUR", CurrencySymbol: "€", Flag: "🇵🇹", Region: "Europe"},
	{Code: "ES", Name: "Spain", Currency: "EUR", CurrencySymbol: "€", Flag: "🇪🇸", Region: "Europe"},
	{Code: "GB", Name: "United Kingdom", Currency: "GBP", CurrencySymbol: "£", Flag: "🇬🇧", Region: "Europe"},
	{Code: "US", Name: "United States", Currency: "USD", CurrencySymbol: "$", Flag: "🇺🇸", Region: "Americas"},
}

// Service serves the country directory with a 24h server-side cache. Upstream
// failures degrade to the static fallback list; the endpoint never errors for
// lack of upstream.
type Service struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.RWMutex
	cached    []Country
	cachedAt  time.Time
	haveCache bool
}

func NewService(baseURL string, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock overrides the clock, for TTL tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListResult carries the list plus cache metadata for the response envelope.
type ListResult struct {
	Countries []Country
	Cached    bool
	CacheAge  time.Duration
}

func (s *Service) List(ctx context.Context) ListResult {
	s.mu.RLock()
	if s.haveCache && s.now().Sub(s.cachedAt) < s.ttl {
		result := ListResult{
			Countries: s.cached,
			Cached:    true,
			CacheAge:  s.now().Sub(s.cachedAt),
		}
		s.mu.RUnlock()
		return result
	}
	s.mu.RUnlock()

	countries, err := s.fetchCountries(ctx)
	if err != nil {
		s.logger.Warn("country directory unavailable, serving fallback list", "error", err)
		countries = make([]Country, len(fallbackCountries))
		copy(countries, fallbackCountries)
	}

	sortByName(countries)

	s.mu.Lock()
	s.cached = countries
	s.cachedAt = s.now()
	s.haveCache = true
	s.mu.Unlock()

	return ListResult{Countries: countries}
}

func sortByName(countries []Country) {
	sort.Slice(countries, func(i, j int) bool {
		return strings.ToLower(countries[i].Name) < strings.ToLower(countries[j].Name)
	})
}

func (s *Service) fetchCountries(ctx context.Context) ([]Country, error) {
	ctx, cancel := internal.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/all?fields=name,cca2,currencies,flag,region", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create countries request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("countries request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("countries API returned status %d", resp.StatusCode)
	}

	var payload []struct {
		CCA2 string `json:"cca2"`
		Name struct {
			Common string `json:"common"`
		} `json:"name"`
		Currencies map[string]struct {
			Symbol string `json:"symbol"`
		} `json:"currencies"`
		Flag   string `json:"flag"`
		Region string `json:"region"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode countries response: %w", err)
	}

	countries := make([]Country, 0, len(payload))
	for _, entry := range payload {
		if entry.CCA2 == "" || entry.Name.Common == "" || len(entry.Currencies) == 0 {
			continue
		}

		// Currency map ordering is unspecified; take the lowest code so
		// repeated fetches stay deterministic.
		codes := make([]string, 0, len(entry.Currencies))
		for code := range entry.Currencies {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		currencyCode := codes[0]

		symbol := entry.Currencies[currencyCode].Symbol
		if symbol == "" {
			symbol = currencyCode
		}

		region := entry.Region
		if region == "" {
			region = "Unknown"
		}

		countries = append(countries, Country{
			Code:           entry.CCA2,
			Name:           entry.Name.Common,
			Currency:       currencyCode,
			CurrencySymbol: symbol,
			Flag:           entry.Flag,
			Region:         region,
		})
	}

	if len(countries) == 0 {
		return nil, fmt.Errorf("countries API returned no usable entries")
	}

	return countries, nil
}
