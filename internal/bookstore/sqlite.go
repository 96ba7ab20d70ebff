// Package bookstore persists chapter text in a local SQLite database.
//
// The reader uploads chapter bodies once; the enqueue API then resolves
// chapter and next-chapter text from this store when queuing synthesis work,
// so clients never re-send full chapter bodies on page turns.
package bookstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/book-expert/tts-gateway/internal/core"
)

const dirPermissions = 0o750

const schema = `
CREATE TABLE IF NOT EXISTS chapters (
    book_id    TEXT NOT NULL,
    chapter_id TEXT NOT NULL,
    position   INTEGER NOT NULL,
    body       TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (book_id, chapter_id)
);
CREATE INDEX IF NOT EXISTS idx_chapters_book_position ON chapters(book_id, position);
`

// Store is a SQLite-backed chapter store. It implements core.ChapterStore.
type Store struct {
	db *sql.DB
}

// Open creates or opens the chapter database at path and ensures the schema
// exists. The parent directory is created when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		mkdirErr := os.MkdirAll(dir, dirPermissions)
		if mkdirErr != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", mkdirErr)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chapter database: %w", err)
	}

	pingErr := db.PingContext(ctx)
	if pingErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping chapter database: %w", pingErr)
	}

	_, schemaErr := db.ExecContext(ctx, schema)
	if schemaErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to initialize chapter schema: %w", schemaErr)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close chapter database: %w", err)
	}

	return nil
}

// PutChapter stores or replaces a chapter body. Position orders chapters
// within a book and drives NextChapter resolution.
func (s *Store) PutChapter(
	ctx context.Context,
	bookID, chapterID string,
	position int,
	body string,
) error {
	if bookID == "" || chapterID == "" {
		return fmt.Errorf("%w: book and chapter identifiers are required", core.ErrInvalidInput)
	}

	if body == "" {
		return fmt.Errorf("%w: chapter body cannot be empty", core.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters(book_id, chapter_id, position, body, updated_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(book_id, chapter_id)
		 DO UPDATE SET position = excluded.position,
		               body = excluded.body,
		               updated_at = excluded.updated_at`,
		bookID, chapterID, position, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to store chapter %s/%s: %v", core.ErrInternal, bookID, chapterID, err)
	}

	return nil
}

// GetChapter returns the stored body of a chapter, or core.ErrNotFound when
// the chapter was never uploaded.
func (s *Store) GetChapter(ctx context.Context, bookID, chapterID string) (string, error) {
	var body string

	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM chapters WHERE book_id = ? AND chapter_id = ?`,
		bookID, chapterID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: chapter %s/%s", core.ErrNotFound, bookID, chapterID)
	}

	if err != nil {
		return "", fmt.Errorf("%w: failed to load chapter %s/%s: %v", core.ErrInternal, bookID, chapterID, err)
	}

	return body, nil
}

// NextChapter returns the identifier of the chapter after chapterID in book
// order, and ok=false when chapterID is the last chapter or unknown.
func (s *Store) NextChapter(ctx context.Context, bookID, chapterID string) (string, bool, error) {
	var position int

	err := s.db.QueryRowContext(ctx,
		`SELECT position FROM chapters WHERE book_id = ? AND chapter_id = ?`,
		bookID, chapterID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("%w: failed to resolve chapter %s/%s: %v", core.ErrInternal, bookID, chapterID, err)
	}

	var next string

	err = s.db.QueryRowContext(ctx,
		`SELECT chapter_id FROM chapters
		 WHERE book_id = ? AND position > ?
		 ORDER BY position ASC LIMIT 1`,
		bookID, position).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("%w: failed to resolve next chapter after %s/%s: %v", core.ErrInternal, bookID, chapterID, err)
	}

	return next, true, nil
}

// ListChapters returns the chapter identifiers of a book in reading order.
func (s *Store) ListChapters(ctx context.Context, bookID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter_id FROM chapters WHERE book_id = ? ORDER BY position ASC`,
		bookID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list chapters for book %s: %v", core.ErrInternal, bookID, err)
	}
	defer rows.Close()

	var chapters []string

	for rows.Next() {
		var chapterID string

		scanErr := rows.Scan(&chapterID)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: failed to scan chapter row: %v", core.ErrInternal, scanErr)
		}

		chapters = append(chapters, chapterID)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("%w: failed to iterate chapter rows: %v", core.ErrInternal, rowsErr)
	}

	return chapters, nil
}
