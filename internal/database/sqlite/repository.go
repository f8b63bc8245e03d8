package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
)

type urlRecord struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CreatedAt:   r.CreatedAt,
	}
}

// URLRepository persists shortened URLs in a single urls table.
// Records are append-only: no update or delete operations are exposed.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new url record inside an explicit transaction. The
// transaction is rolled back on any failure, so no partial record persists.
// A unique-constraint failure on short_code maps to database.ErrShortCodeExists.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.Create"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url)
		VALUES (?, ?)
		RETURNING id, short_code, original_url, created_at`

	err = tx.GetContext(ctx, rec, query, shortCode, originalURL)
	if err != nil {
		_ = tx.Rollback()

		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode retrieves a record by its short code. The match is exact and
// case-sensitive.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT id, short_code, original_url, created_at
		FROM urls
		WHERE short_code = ?`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByOriginalURL retrieves the oldest record for a normalized original URL.
// It backs the dedup check in the shorten flow.
func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT id, short_code, original_url, created_at
		FROM urls
		WHERE original_url = ?
		ORDER BY id
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// ExistsByShortCode reports whether a record with the given short code exists.
func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.sqlite.URLRepository.ExistsByShortCode"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = ?)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check short code existence: %w", op, err)
	}

	return exists, nil
}
