package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
	gocache "github.com/patrickmn/go-cache"
)

// shortCodeAlphabet is the 62-character alphanumeric alphabet short codes are
// drawn from. gonanoid reads crypto/rand, so codes are not guessable.
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	defaultMaxAttempts = 10
	maxCreateRetries   = 3
)

var (
	// ErrInvalidURL is returned when the submitted URL is empty or fails
	// syntax validation after normalization.
	ErrInvalidURL = errors.New("invalid url")
	// ErrMaxRetriesExceeded is returned when the insert keeps losing the
	// short code uniqueness race.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for creating short url")
)

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL into the repository.
	// Returns database.ErrShortCodeExists if the short code is already taken.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code.
	// Returns database.ErrURLNotFound if no record matches.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves the canonical record for a normalized URL.
	// Returns database.ErrURLNotFound if no record matches.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// ExistsByShortCode reports whether a short code is already taken.
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)
}

type Option func(*URLService)

// WithMaxAttempts overrides how many candidate codes are probed against the
// store before falling back to a longer code.
func WithMaxAttempts(n int) Option {
	return func(s *URLService) {
		s.maxAttempts = n
	}
}

// WithCache enables a TTL-bounded lookup cache on the resolve path.
func WithCache(ttl time.Duration) Option {
	return func(s *URLService) {
		s.cache = gocache.New(ttl, 2*ttl)
	}
}

// URLService provides methods to manage URL shortening operations.
type URLService struct {
	repo            URLRepository
	shortCodeLength int
	maxAttempts     int
	cache           *gocache.Cache
}

// NewURLService creates a new URLService with the provided repository and
// short code length.
func NewURLService(repo URLRepository, shortCodeLength int, opts ...Option) *URLService {
	s := &URLService{
		repo:            repo,
		shortCodeLength: shortCodeLength,
		maxAttempts:     defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NormalizeURL prepends an https scheme when the raw URL carries none and
// validates the result: it must parse as an http(s) URL with a dotted host.
// It returns ErrInvalidURL for anything that fails those rules.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrInvalidURL
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}

	if host := u.Hostname(); host == "" || !strings.Contains(host, ".") {
		return "", ErrInvalidURL
	}

	return rawURL, nil
}

// generateShortCode produces a random code of the given length drawn from the
// alphanumeric alphabet.
func generateShortCode(length int) (string, error) {
	return gonanoid.Generate(shortCodeAlphabet, length)
}

// uniqueShortCode generates candidate codes until one is absent from the
// store, probing at most maxAttempts times. When every attempt collides it
// falls back once to a code two characters longer; that candidate is returned
// without a fresh probe and the unique index on short_code backstops it.
func (s *URLService) uniqueShortCode(ctx context.Context) (string, error) {
	const op = "service.URLService.uniqueShortCode"

	for i := 0; i < s.maxAttempts; i++ {
		code, err := generateShortCode(s.shortCodeLength)
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		exists, err := s.repo.ExistsByShortCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if !exists {
			return code, nil
		}
	}

	code, err := generateShortCode(s.shortCodeLength + 2)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// ShortenURL normalizes and validates the raw URL, returns the existing record
// when the same normalized URL was shortened before, and otherwise stores it
// under a freshly generated unique short code.
//
// The dedup check and the insert are not atomic. The unique index on
// short_code is the authoritative duplicate signal: when the insert loses that
// race the service mints a fresh code and retries, bounded by maxCreateRetries.
func (s *URLService) ShortenURL(ctx context.Context, rawURL string) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	originalURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	existing, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to check for existing url: %w", op, err)
	}

	for i := 0; i < maxCreateRetries; i++ {
		shortCode, err := s.uniqueShortCode(ctx)
		if err != nil {
			return nil, err
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode retrieves the original URL associated with the provided
// short code, consulting the lookup cache first when one is configured.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	if s.cache != nil {
		if cached, ok := s.cache.Get(shortCode); ok {
			return cached.(*models.URL), nil
		}
	}

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if s.cache != nil {
		s.cache.SetDefault(shortCode, url)
	}

	return url, nil
}

// GetURLStats retrieves the record for the provided short code without side
// effects. It bypasses the cache so creation metadata is always read from the
// store.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
