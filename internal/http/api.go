package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kjstillabower/weather-forecast-app/internal/traffic"
)

// GetWeather handles GET /api/weather/{city}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetReport(r.Context(), mux.Vars(r)["city"])
	if err != nil {
		h.recordOutcome(err)
		writeServiceError(w, r, err)
		return
	}
	h.traffic.Record(traffic.Success)
	writeJSON(w, http.StatusOK, report)
}

// Compare handles GET /api/compare?a=&b=.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := strings.TrimSpace(q.Get("a")), strings.TrimSpace(q.Get("b"))
	if a == "" || b == "" {
		writeError(w, r, http.StatusBadRequest, CodeInvalidCity, "Both a and b are required")
		return
	}
	cmp, err := h.svc.Compare(r.Context(), a, b)
	if err != nil {
		h.recordOutcome(err)
		writeServiceError(w, r, err)
		return
	}
	h.traffic.Record(traffic.Success)
	writeJSON(w, http.StatusOK, cmp)
}

type searchRequest struct {
	Query string `json:"query"`
}

// PostSearch handles POST /api/search with {"query": "..."}.
func (h *Handler) PostSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidForm, "Request body must be JSON with a query field")
		return
	}
	city, err := h.svc.Search(r.Context(), req.Query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "recent": h.svc.Recent()})
}

// ListFavorites handles GET /api/favorites.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": h.svc.Favorites()})
}

// PutFavorite handles PUT /api/favorites/{city}. 201 when added, 200 when already present.
func (h *Handler) PutFavorite(w http.ResponseWriter, r *http.Request) {
	added, err := h.svc.AddFavorite(r.Context(), mux.Vars(r)["city"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"favorites": h.svc.Favorites()})
}

// DeleteFavorite handles DELETE /api/favorites/{city}.
func (h *Handler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveFavorite(r.Context(), mux.Vars(r)["city"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRecent handles GET /api/recent.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"recent": h.svc.Recent()})
}
