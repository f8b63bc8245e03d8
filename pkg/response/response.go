package response

import (
	"fmt"
	"time"
)

// Error is the body returned for every failed request.
type Error struct {
	Detail string `json:"detail"`
}

var (
	EmptyRequestBodyError = Error{
		Detail: "Request body is empty. Please provide necessary data.",
	}

	MalformedRequestBodyError = Error{
		Detail: "Request body is malformed. Please provide valid JSON.",
	}

	ServerError = Error{
		Detail: "An internal server error occurred. Please try again later.",
	}
)

// NotFoundError builds the 404 body, echoing the short code that was requested.
func NotFoundError(shortCode string) Error {
	return Error{
		Detail: fmt.Sprintf("Short code '%s' not found", shortCode),
	}
}

// InvalidURLError builds the 400 body for a URL that failed validation.
func InvalidURLError() Error {
	return Error{
		Detail: "Invalid URL format. Please provide a valid URL (e.g. https://example.com)",
	}
}

// InternalError builds the 500 body, wrapping the underlying cause.
func InternalError(err error) Error {
	return Error{
		Detail: fmt.Sprintf("Internal server error: %v", err),
	}
}

// URL is the body returned by the shorten and stats endpoints.
type URL struct {
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CreatedAt   time.Time `json:"created_at"`
}
