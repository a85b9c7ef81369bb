package currency

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/film-payments/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	Rates  *RateService
	Logger *slog.Logger
}

func NewHandler(rates *RateService, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Rates:       rates,
		Logger:      logger,
	}
}

type rateResponse struct {
	Success  bool    `json:"success"`
	Currency string  `json:"currency"`
	Symbol   string  `json:"symbol"`
	Rate     float64 `json:"rate"`
	Fallback bool    `json:"fallback,omitempty"`
}

// GetRate handles GET /api/v1/exchange-rate?currency=EUR. The storefront uses
// it to price films in the buyer's currency before checkout.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("currency")

	conv := h.Rates.Convert(r.Context(), 1, code)

	h.WriteJSON(w, http.StatusOK, rateResponse{
		Success:  true,
		Currency: conv.Currency,
		Symbol:   conv.Symbol,
		Rate:     conv.Rate,
		Fallback: conv.FellBack,
	})
}
