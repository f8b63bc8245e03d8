package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/shortly/internal/models"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL normalizes and stores the original URL under a unique short
	// code, returning the existing record when the URL was shortened before.
	ShortenURL(ctx context.Context, rawURL string) (*models.URL, error)

	// ResolveShortCode retrieves the original URL for a given short code.
	ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetURLStats retrieves the record for a short code without side effects.
	GetURLStats(ctx context.Context, shortCode string) (*models.URL, error)
}

// getValidate initializes a validator instance that reports field names from
// JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
// baseURL is used to build the short_url field in responses; staticDir may be
// empty to disable the HTML frontend.
func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL, staticDir string) http.Handler {
	r := chi.NewRouter()
	m := newMetrics()
	validate := getValidate()

	baseURL = strings.TrimRight(baseURL, "/")

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(m.requestMetrics)

	r.Get("/", handleRoot(staticDir))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/ping", handlePing)
		r.Post("/shorten", handleShortenURL(urlSvc, validate, baseURL, m))
		r.Get("/stats/{shortCode}", handleGetURLStats(urlSvc, baseURL))
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc, m))

	return r
}
