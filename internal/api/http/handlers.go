package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/service"
	"github.com/vadimbarashkov/shortly/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// urlRequest represents the request payload for shortening a URL. Syntax
// validation happens in the service after scheme normalization, so only
// presence is checked here.
type urlRequest struct {
	URL string `json:"url" validate:"required"`
}

func toURLResponse(baseURL string, url *models.URL) response.URL {
	return response.URL{
		ShortURL:    fmt.Sprintf("%s/%s", baseURL, url.ShortCode),
		OriginalURL: url.OriginalURL,
		ShortCode:   url.ShortCode,
		CreatedAt:   url.CreatedAt,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// Submitting the same normalized URL twice is an idempotent success: both
// requests answer 201 with the same short code.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string, m *metrics) http.HandlerFunc {
	const op = "api.http.handleShortenURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyError)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.MalformedRequestBodyError)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLError())
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.URL)
		if err != nil {
			if errors.Is(err, service.ErrInvalidURL) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidURLError())
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.InternalError(err))
			return
		}

		m.shortenRequests.Inc()

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toURLResponse(baseURL, url))
	}
}

// handleRedirect handles GET requests on a short code and issues a 302 to the
// stored original URL. The stored URL is used verbatim, without re-validation.
func handleRedirect(svc URLService, m *metrics) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.NotFoundError(shortCode))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.InternalError(err))
			return
		}

		m.redirectRequests.Inc()

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests for short URL metadata. It performs
// the same lookup as the redirect path but has no side effects.
func handleGetURLStats(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.NotFoundError(shortCode))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.InternalError(err))
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, toURLResponse(baseURL, url))
	}
}

// handleRoot serves the frontend page when the static asset exists and falls
// back to a JSON API summary otherwise.
func handleRoot(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if staticDir != "" {
			index := filepath.Join(staticDir, "index.html")
			if _, err := os.Stat(index); err == nil {
				http.ServeFile(w, r, index)
				return
			}
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]any{
			"message": "URL Shortening Service API",
			"version": "1.0.0",
			"endpoints": map[string]string{
				"shorten":  "POST /api/shorten",
				"redirect": "GET /{shortCode}",
				"stats":    "GET /api/stats/{shortCode}",
			},
		})
	}
}
