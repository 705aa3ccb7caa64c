package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-app/internal/observability"
	"github.com/kjstillabower/weather-forecast-app/internal/pages"
)

// RouterOptions configures the middleware applied by NewRouter.
type RouterOptions struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter // nil disables rate limiting
	InFlight       *InFlightTracker
}

// NewRouter wires every route. /health and /metrics skip rate limiting and timeouts.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	if opts.InFlight == nil {
		opts.InFlight = &InFlightTracker{}
	}
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(h.logger))
	router.Use(MetricsMiddleware)
	router.Use(InFlightMiddleware(opts.InFlight))
	router.NotFoundHandler = CorrelationIDMiddleware(h.logger)(MetricsMiddleware(http.HandlerFunc(h.NotFound)))
	router.MethodNotAllowedHandler = CorrelationIDMiddleware(h.logger)(MetricsMiddleware(http.HandlerFunc(h.MethodNotAllowed)))

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	app := router.NewRoute().Subrouter()
	app.Use(RateLimitMiddleware(opts.Limiter, h.traffic))
	app.Use(TimeoutMiddleware(opts.RequestTimeout))

	app.HandleFunc("/", h.Home).Methods(http.MethodGet)
	app.HandleFunc("/weather/{city}", h.Weather).Methods(http.MethodGet)
	app.HandleFunc("/about", h.StaticPage(pages.About, "About")).Methods(http.MethodGet)
	app.HandleFunc("/privacy", h.StaticPage(pages.Privacy, "Privacy Policy")).Methods(http.MethodGet)
	app.HandleFunc("/terms", h.StaticPage(pages.Terms, "Terms of Service")).Methods(http.MethodGet)
	app.HandleFunc("/contact", h.ContactForm).Methods(http.MethodGet)
	app.HandleFunc("/contact", h.SubmitContact).Methods(http.MethodPost)
	app.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	app.HandleFunc("/favorites/{city}", h.ToggleFavorite).Methods(http.MethodPost)

	api := app.PathPrefix("/api").Subrouter()
	api.HandleFunc("/weather/{city}", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/compare", h.Compare).Methods(http.MethodGet)
	api.HandleFunc("/search", h.PostSearch).Methods(http.MethodPost)
	api.HandleFunc("/favorites", h.ListFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{city}", h.PutFavorite).Methods(http.MethodPut)
	api.HandleFunc("/favorites/{city}", h.DeleteFavorite).Methods(http.MethodDelete)
	api.HandleFunc("/recent", h.ListRecent).Methods(http.MethodGet)

	return router
}
