// Package sqlstore implements port.Store on SQLite. Uniqueness of
// fingerprints and of (document, chunk index) is enforced by the schema,
// and constraint violations surface as domain.ErrConflict.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"docindex/internal/adapter/sqlstore/migrations"
	"docindex/internal/adapter/vector"
	"docindex/internal/domain"
	"docindex/internal/port"
)

type Store struct {
	db       *sql.DB
	path     string
	distance vector.DistanceFunc
}

var _ port.Store = (*Store)(nil)

// Open opens or creates the database at path and applies pending
// migrations. Write transactions take the lock up front so concurrent
// ingesters queue on busy_timeout instead of failing mid-transaction.
func Open(path string, distance vector.DistanceFunc) (*Store, error) {
	if distance == nil {
		distance = vector.CosineDistance
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, distance: distance}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
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
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
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
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(tx port.Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, text, fingerprint string) (id string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		id, err = tx.CreateDocument(ctx, text, fingerprint)
		return err
	})
	return id, err
}

func (s *Store) CreateChunks(ctx context.Context, documentID string, texts []string) (ids []string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		ids, err = tx.CreateChunks(ctx, documentID, texts)
		return err
	})
	return ids, err
}

func (s *Store) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		panic("sqlstore: StoreEmbeddings called with misaligned chunk ids and vectors")
	}
	return s.Update(ctx, func(tx port.Writer) error {
		return tx.StoreEmbeddings(ctx, documentID, chunkIDs, vectors)
	})
}

func (s *Store) FindDocumentByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE fingerprint = ?", fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fingerprint %s: %w", fingerprint, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find document by fingerprint: %w", err)
	}
	return id, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (domain.Document, error) {
	doc := domain.Document{ID: documentID}
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint, text, created_at FROM documents WHERE id = ?", documentID,
	).Scan(&doc.Fingerprint, &doc.Text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return doc, nil
}

func (s *Store) Search(ctx context.Context, query []float32, topK int, documentID string) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return nil, domain.Invalid("top_k must be positive, got %d", topK)
	}

	q := `SELECT e.document_id, c.chunk_index, e.vector
		FROM embeddings e JOIN chunks c ON c.id = e.chunk_id`
	var args []any
	if documentID != "" {
		q += " WHERE e.document_id = ?"
		args = append(args, documentID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	top := vector.NewTopK(topK)
	for rows.Next() {
		var (
			c    vector.Candidate
			blob []byte
		)
		if err := rows.Scan(&c.DocumentID, &c.Index, &blob); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, err
		}
		c.Distance, err = s.distance(query, vec)
		if err != nil {
			return nil, domain.Invalid("%v", err)
		}
		top.Push(c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ranked := top.Sorted()
	hits := make([]domain.SearchHit, 0, len(ranked))
	for _, c := range ranked {
		hit := domain.SearchHit{DocumentID: c.DocumentID, Index: c.Index, Distance: c.Distance}
		err := s.db.QueryRowContext(ctx,
			"SELECT id, text FROM chunks WHERE document_id = ? AND chunk_index = ?", c.DocumentID, c.Index,
		).Scan(&hit.ChunkID, &hit.Text)
		if err != nil {
			return nil, fmt.Errorf("search: load chunk %s/%d: %w", c.DocumentID, c.Index, err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Store) GetChunksInRange(ctx context.Context, documentID string, from, to int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM chunks
		WHERE document_id = ? AND chunk_index BETWEEN ? AND ?
		ORDER BY chunk_index`, documentID, max(from, 0), to)
	if err != nil {
		return nil, fmt.Errorf("get chunks in range: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("get chunks in range: scan: %w", err)
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

func (s *Store) HasEmbeddings(ctx context.Context, documentID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM embeddings WHERE document_id = ?)", documentID,
	).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("has embeddings: %w", err)
	}
	return has, nil
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM documents),
		(SELECT COUNT(*) FROM chunks),
		(SELECT COUNT(*) FROM embeddings)`,
	).Scan(&stats.Documents, &stats.Chunks, &stats.Embeddings)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func (s *Store) EnsureProfile(ctx context.Context, profile domain.IndexProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored domain.IndexProfile
	err = tx.QueryRowContext(ctx,
		"SELECT model, dimension, distance FROM index_profile WHERE id = 1",
	).Scan(&stored.Model, &stored.Dimension, &stored.Distance)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO index_profile (id, model, dimension, distance) VALUES (1, ?, ?, ?)",
			profile.Model, profile.Dimension, profile.Distance)
		if err != nil {
			return fmt.Errorf("store index profile: %w", err)
		}
		return tx.Commit()
	case err != nil:
		return fmt.Errorf("read index profile: %w", err)
	default:
		return stored.Compatible(profile)
	}
}

// sqlTx is the port.Writer handed to Update callbacks.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) CreateDocument(ctx context.Context, text, fingerprint string) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO documents (id, fingerprint, text, created_at) VALUES (?, ?, ?, ?)",
		id, fingerprint, text, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", classify(err))
	}
	return id, nil
}

func (t *sqlTx) CreateChunks(ctx context.Context, documentID string, texts []string) ([]string, error) {
	var exists bool
	if err := t.tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM documents WHERE id = ?)", documentID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check document: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	stmt, err := t.tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, document_id, chunk_index, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], documentID, i, text); err != nil {
			return nil, fmt.Errorf("insert chunk %d: %w", i, classify(err))
		}
	}
	return ids, nil
}

func (t *sqlTx) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		panic("sqlstore: StoreEmbeddings called with misaligned chunk ids and vectors")
	}

	stmt, err := t.tx.PrepareContext(ctx,
		"INSERT INTO embeddings (chunk_id, document_id, vector) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range chunkIDs {
		var owner string
		err := t.tx.QueryRowContext(ctx, "SELECT document_id FROM chunks WHERE id = ?", id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != documentID) {
			return fmt.Errorf("chunk %s of document %s: %w", id, documentID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check chunk %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, documentID, vector.Encode(vectors[i])); err != nil {
			return fmt.Errorf("insert embedding for chunk %s: %w", id, classify(err))
		}
	}
	return nil
}

// classify maps uniqueness violations to domain.ErrConflict, keeping the
// driver error in the chain.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		}
	}
	return err
}
