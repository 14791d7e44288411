package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbnote/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Store is a SQLite database that provides the note stores through
// wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.kbnote/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbnote", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "notes.db")

	// WAL mode lets readers proceed while a worker writes. The sqlite time
	// format keeps DATETIME columns sortable as text.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// VectorEntryStore returns a VectorEntryStore backed by this store.
func (s *Store) VectorEntryStore() driven.VectorEntryStore {
	return &vectorEntryStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// noteLocation is the stored-location identifier of a note.
func noteLocation(category domain.Category, id string) string {
	return category.String() + "/" + id + ".md"
}

// Save stores or replaces a note under its metadata id. The creation time
// of an existing note is kept.
func (s *documentStore) Save(
	ctx context.Context,
	category domain.Category,
	rendered string,
	meta *domain.DocumentMetadata,
) (string, error) {
	if meta == nil || meta.ID() == "" {
		return "", fmt.Errorf("%w: note has no id", domain.ErrInvalidInput)
	}
	id := meta.ID()
	location := noteLocation(category, id)
	now := s.store.now().UTC()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, category, location, title, rendered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			location = excluded.location,
			title = excluded.title,
			rendered = excluded.rendered,
			updated_at = excluded.updated_at
	`, id, category.String(), location, meta.Title(), rendered, now, now)
	if err != nil {
		return "", fmt.Errorf("saving document: %w", err)
	}
	return location, nil
}

// Get retrieves a note by id. Metadata is left nil; callers parse Rendered.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, category, location, title, rendered, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// List returns notes newest first. An empty category lists all; a
// non-positive limit means no limit.
func (s *documentStore) List(ctx context.Context, category domain.Category, limit int) ([]domain.Document, error) {
	query := `
		SELECT id, category, location, title, rendered, created_at, updated_at
		FROM documents`
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category.String())
	}
	query += " ORDER BY created_at DESC, id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes a note.
func (s *documentStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc      domain.Document
		category string
	)
	if err := row.Scan(&doc.ID, &category, &doc.Location, &doc.Title, &doc.Rendered,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Category = domain.Category(category)
	return &doc, nil
}

// ==================== Vector Entry Store ====================

// vectorEntryStore implements driven.VectorEntryStore.
type vectorEntryStore struct {
	store *Store
}

var _ driven.VectorEntryStore = (*vectorEntryStore)(nil)

// SaveEntries stores or replaces entries in one transaction.
func (s *vectorEntryStore) SaveEntries(ctx context.Context, entries []domain.VectorEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_entries (document_id, term_counts, term_weights, norm)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			term_counts = excluded.term_counts,
			term_weights = excluded.term_weights,
			norm = excluded.norm
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		counts, err := json.Marshal(e.TermCounts)
		if err != nil {
			return fmt.Errorf("marshalling term counts: %w", err)
		}
		weights, err := json.Marshal(e.TermWeights)
		if err != nil {
			return fmt.Errorf("marshalling term weights: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.DocumentID, string(counts), string(weights), e.Norm); err != nil {
			return fmt.Errorf("saving vector entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteEntry removes the entry of a document. Missing entries are ignored.
func (s *vectorEntryStore) DeleteEntry(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM vector_entries WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting vector entry: %w", err)
	}
	return nil
}

// LoadEntries returns all entries ordered by document id.
func (s *vectorEntryStore) LoadEntries(ctx context.Context) ([]domain.VectorEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, term_counts, term_weights, norm
		FROM vector_entries ORDER BY document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vector entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.VectorEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			e               domain.VectorEntry
			counts, weights string
		)
		if err := rows.Scan(&e.DocumentID, &counts, &weights, &e.Norm); err != nil {
			return nil, fmt.Errorf("scanning vector entry: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &e.TermCounts); err != nil {
			return nil, fmt.Errorf("unmarshalling term counts: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &e.TermWeights); err != nil {
			return nil, fmt.Errorf("unmarshalling term weights: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector entries: %w", err)
	}
	return entries, nil
}
