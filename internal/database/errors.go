package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when no record matches the requested
	// short code or original URL.
	ErrURLNotFound = errors.New("url not found")
)
