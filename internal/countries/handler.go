package countries

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/film-payments/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	Service *Service
	Logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

type listResponse struct {
	Success   bool      `json:"success"`
	Countries []Country `json:"countries"`
	Cached    bool      `json:"cached"`
	CacheAge  int64     `json:"cacheAge,omitempty"`
	Total     int       `json:"total,omitempty"`
}

// List handles GET /api/v1/countries
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	result := h.Service.List(r.Context())

	resp := listResponse{
		Success:   true,
		Countries: result.Countries,
		Cached:    result.Cached,
	}
	if result.Cached {
		resp.CacheAge = int64(result.CacheAge.Minutes())
	} else {
		resp.Total = len(result.Countries)
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
