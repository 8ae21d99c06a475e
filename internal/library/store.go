package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Store reads the books table. The catalog is reference data; there is no
// write path here, rows arrive through migrations or external loaders.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// ByISBN fetches a single book.
func (s *Store) ByISBN(ctx context.Context, isbn string) (*Book, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT isbn, title, author, genre, summary, published_year
		FROM books WHERE isbn = $1`, isbn)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book %s: %w", isbn, err)
	}
	return b, nil
}

// Find returns books matching the filter, ordered by title. Genre and author
// match case-insensitively; title matches as a case-insensitive substring.
func (s *Store) Find(ctx context.Context, f Filter) ([]*Book, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Genres) > 0 {
		conds = append(conds, "LOWER(genre) = ANY("+arg(lowered(f.Genres))+")")
	}
	if len(f.Authors) > 0 {
		conds = append(conds, "LOWER(author) = ANY("+arg(lowered(f.Authors))+")")
	}
	if f.Title != "" {
		conds = append(conds, "title ILIKE "+arg("%"+f.Title+"%"))
	}
	if f.YearFrom != 0 {
		conds = append(conds, "published_year >= "+arg(f.YearFrom))
	}
	if f.YearTo != 0 {
		conds = append(conds, "published_year <= "+arg(f.YearTo))
	}

	query := "SELECT isbn, title, author, genre, summary, published_year FROM books"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY title"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ByISBNs fetches the given books, skipping unknown ISBNs.
func (s *Store) ByISBNs(ctx context.Context, isbns []string) ([]*Book, error) {
	if len(isbns) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT isbn, title, author, genre, summary, published_year
		FROM books WHERE isbn = ANY($1) ORDER BY title`, isbns)
	if err != nil {
		return nil, fmt.Errorf("get books by isbn: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Genres returns the distinct genre vocabulary of the catalog.
func (s *Store) Genres(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "genre")
}

// Authors returns the distinct author vocabulary of the catalog.
func (s *Store) Authors(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "author")
}

func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	// column is always a fixed identifier, never user input.
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT "+column+" FROM books WHERE "+column+" <> '' ORDER BY "+column)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanBook(row pgx.Row) (*Book, error) {
	var b Book
	if err := row.Scan(&b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Summary, &b.PublishedYear); err != nil {
		return nil, err
	}
	return &b, nil
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
