package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
	"github.com/kjstillabower/weather-forecast-app/internal/pages"
	"github.com/kjstillabower/weather-forecast-app/internal/service"
	"github.com/kjstillabower/weather-forecast-app/internal/traffic"
	"github.com/kjstillabower/weather-forecast-app/internal/validation"
)

// maxFormBytes bounds form and JSON request bodies.
const maxFormBytes = 64 << 10

// WeatherService is what the handlers need from service.WeatherService.
type WeatherService interface {
	GetReport(ctx context.Context, city string) (models.Report, error)
	Compare(ctx context.Context, a, b string) (service.Comparison, error)
	Search(ctx context.Context, query string) (string, error)
	AddFavorite(ctx context.Context, city string) (bool, error)
	RemoveFavorite(ctx context.Context, city string) error
	ToggleFavorite(ctx context.Context, city string) (bool, error)
	IsFavorite(city string) bool
	Favorites() []string
	Recent() []string
}

// Handler serves the pages, the form posts and the JSON API.
type Handler struct {
	svc     WeatherService
	pages   *pages.Renderer
	health  *HealthConfig
	traffic *traffic.Tracker
	logger  *zap.Logger
	now     func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

func NewHandler(svc WeatherService, renderer *pages.Renderer, health *HealthConfig, tracker *traffic.Tracker, logger *zap.Logger) *Handler {
	if tracker == nil {
		tracker = traffic.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, pages: renderer, health: health, traffic: tracker, logger: logger, now: time.Now}
}

func (h *Handler) layout(r *http.Request, title string) pages.Layout {
	return pages.Layout{Title: title, RequestID: observability.CorrelationID(r.Context()), Year: h.now().Year()}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Render(w, page, data); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render page", zap.String("page", page), zap.Error(err))
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, pages.Error, pages.ErrorData{
		Layout:  h.layout(r, http.StatusText(status)),
		Status:  status,
		Message: message,
	})
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pages.Home, h.homeData(r, "", ""))
}

func (h *Handler) homeData(r *http.Request, query, notice string) pages.HomeData {
	return pages.HomeData{
		Layout:    h.layout(r, "Home"),
		Trending:  pages.TrendingCities,
		Recent:    h.svc.Recent(),
		Favorites: h.svc.Favorites(),
		Query:     query,
		Notice:    notice,
	}
}

// Weather handles GET /weather/{city}.
func (h *Handler) Weather(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	report, err := h.svc.GetReport(r.Context(), city)
	if err != nil {
		h.recordOutcome(err)
		e := classify(err)
		logServiceError(r, e, err)
		h.renderError(w, r, e.status, e.message)
		return
	}
	h.traffic.Record(traffic.Success)
	data := pages.NewWeatherData(h.layout(r, report.City), report, h.svc.IsFavorite(report.City))
	h.render(w, r, http.StatusOK, pages.Weather, data)
}

// StaticPage serves a page that needs only the layout.
func (h *Handler) StaticPage(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, page, h.layout(r, title))
	}
}

// ContactForm handles GET /contact.
func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pages.Contact, pages.ContactData{Layout: h.layout(r, "Contact")})
}

// SubmitContact handles POST /contact. Accepted messages are logged; there is no mail transport.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		observability.ContactSubmissionsTotal.WithLabelValues("rejected").Inc()
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read")
		return
	}
	form := validation.ContactForm{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Subject: r.PostFormValue("subject"),
		Message: r.PostFormValue("message"),
	}
	logger := observability.LoggerFromContext(r.Context())
	if err := validation.ValidateContact(&form); err != nil {
		observability.ContactSubmissionsTotal.WithLabelValues("rejected").Inc()
		logger.Debug("contact form rejected", zap.Error(err))
		h.render(w, r, http.StatusBadRequest, pages.Contact, pages.ContactData{
			Layout: h.layout(r, "Contact"),
			Form:   form,
			Error:  "Please check the form: " + err.Error(),
		})
		return
	}
	observability.ContactSubmissionsTotal.WithLabelValues("accepted").Inc()
	logger.Info("contact message received",
		zap.String("name", form.Name),
		zap.String("email", form.Email),
		zap.String("subject", form.Subject),
		zap.Int("message_length", len(form.Message)))
	h.render(w, r, http.StatusOK, pages.Contact, pages.ContactData{Layout: h.layout(r, "Contact"), Sent: true})
}

// Search handles POST /search. An empty query redirects home unchanged.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	query := r.FormValue("q")
	city, err := h.svc.Search(r.Context(), query)
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case err != nil:
		e := classify(err)
		logServiceError(r, e, err)
		h.render(w, r, e.status, pages.Home, h.homeData(r, query, e.message))
	default:
		http.Redirect(w, r, "/weather/"+url.PathEscape(city), http.StatusSeeOther)
	}
}

// ToggleFavorite handles POST /favorites/{city} and returns to the weather page.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	if _, err := h.svc.ToggleFavorite(r.Context(), city); err != nil {
		e := classify(err)
		logServiceError(r, e, err)
		h.renderError(w, r, e.status, e.message)
		return
	}
	http.Redirect(w, r, "/weather/"+url.PathEscape(city), http.StatusSeeOther)
}

// NotFound renders the error page, or the JSON envelope under /api/.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "Resource not found")
		return
	}
	h.renderError(w, r, http.StatusNotFound, "Page not found")
}

// MethodNotAllowed renders the error page, or the JSON envelope under /api/, with 405.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
		return
	}
	h.renderError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}

// recordOutcome counts upstream and store failures toward the degraded check.
// Caller mistakes (bad city, unknown city) are not failures.
func (h *Handler) recordOutcome(err error) {
	if e := classify(err); e.status >= http.StatusInternalServerError {
		h.traffic.Record(traffic.Failure)
		return
	}
	h.traffic.Record(traffic.Success)
}
