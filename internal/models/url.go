package models

import "time"

// URL represents a shortened URL record.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	// It always carries an http or https scheme.
	OriginalURL string
	// CreatedAt is the timestamp indicating when the record was created.
	CreatedAt time.Time
}
