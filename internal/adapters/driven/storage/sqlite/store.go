package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	sqlitedriver "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// maxInParams bounds the number of placeholders in one IN (...) clause.
const maxInParams = 500

// Ensure the wrappers implement the interfaces.
var (
	_ driven.BookmarkStore  = (*bookmarkStore)(nil)
	_ driven.TagStore       = (*tagStore)(nil)
	_ driven.TagTx          = (*tagTx)(nil)
	_ driven.EmbeddingStore = (*embeddingStore)(nil)
	_ driven.TextIndex      = (*textIndex)(nil)
)

// Store is a unified SQLite-based storage that provides access to
// all storage interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tagmark/data/tagmark.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tagmark", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tagmark.db")

	// Pragmas in the DSN apply to every pooled connection. Immediate
	// transactions take the write lock up front so busy_timeout covers them.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
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

// BookmarkStore returns a BookmarkStore backed by this store.
func (s *Store) BookmarkStore() driven.BookmarkStore {
	return &bookmarkStore{store: s}
}

// TagStore returns a TagStore backed by this store.
func (s *Store) TagStore() driven.TagStore {
	return &tagStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// TextIndex returns the FTS5 index over bookmarks.
func (s *Store) TextIndex() driven.TextIndex {
	return &textIndex{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
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
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
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
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ==================== Bookmark Store ====================

// bookmarkStore implements driven.BookmarkStore.
type bookmarkStore struct {
	store *Store
}

const bookmarkColumns = "id, url, title, description, content_snippet, source, date_added"

// SaveBookmark inserts a bookmark when its ID is zero and updates it otherwise.
func (s *bookmarkStore) SaveBookmark(ctx context.Context, b *domain.Bookmark) error {
	if b.ID == 0 {
		res, err := s.store.db.ExecContext(ctx, `
			INSERT INTO bookmarks (url, title, description, content_snippet, source, date_added)
			VALUES (?, ?, ?, ?, ?, ?)
		`, b.URL, b.Title, b.Description, b.ContentSnippet, b.Source, b.DateAdded.UTC().UnixNano())
		if err != nil {
			return bookmarkWriteError(err, b.URL)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading bookmark id: %w", err)
		}
		b.ID = id
		return nil
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE bookmarks SET url = ?, title = ?, description = ?, content_snippet = ?,
			source = ?, date_added = ?
		WHERE id = ?
	`, b.URL, b.Title, b.Description, b.ContentSnippet, b.Source, b.DateAdded.UTC().UnixNano(), b.ID)
	if err != nil {
		return bookmarkWriteError(err, b.URL)
	}
	return requireAffected(res)
}

// GetBookmark retrieves a bookmark by ID.
func (s *bookmarkStore) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ?", id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bookmark: %w", err)
	}
	return b, nil
}

// GetBookmarks retrieves the bookmarks that exist among ids.
func (s *bookmarkStore) GetBookmarks(ctx context.Context, ids []int64) (map[int64]domain.Bookmark, error) {
	out := make(map[int64]domain.Bookmark, len(ids))
	for start := 0; start < len(ids); start += maxInParams {
		end := min(start+maxInParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.store.db.QueryContext(ctx,
			"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id IN ("+placeholders(len(chunk))+")", args...)
		if err != nil {
			return nil, fmt.Errorf("querying bookmarks: %w", err)
		}
		list, err := scanBookmarks(rows)
		if err != nil {
			return nil, err
		}
		for _, b := range list {
			out[b.ID] = b
		}
	}
	return out, nil
}

// ListBookmarks returns matching bookmarks newest first.
func (s *bookmarkStore) ListBookmarks(ctx context.Context, filter domain.BookmarkFilter) ([]domain.Bookmark, error) {
	where, args := filterClauses(filter)

	query := "SELECT " + prefixColumns("b", bookmarkColumns) + " FROM bookmarks b"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.date_added DESC, b.id ASC LIMIT ? OFFSET ?"

	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	return scanBookmarks(rows)
}

// filterClauses turns filter into WHERE conditions over bookmarks aliased b.
func filterClauses(filter domain.BookmarkFilter) ([]string, []any) {
	var where []string
	var args []any
	if !filter.From.IsZero() {
		where = append(where, "b.date_added >= ?")
		args = append(args, filter.From.UTC().UnixNano())
	}
	if !filter.To.IsZero() {
		where = append(where, "b.date_added <= ?")
		args = append(args, filter.To.UTC().UnixNano())
	}
	if filter.Source != "" {
		where = append(where, "b.source = ? COLLATE NOCASE")
		args = append(args, filter.Source)
	}
	if filter.Unclassified {
		where = append(where, "NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id)")
	}
	return where, args
}

// DeleteBookmark removes a bookmark. Assignments and embeddings cascade.
func (s *bookmarkStore) DeleteBookmark(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	return requireAffected(res)
}

// ==================== Tag Store ====================

// tagStore implements driven.TagStore.
type tagStore struct {
	store *Store
}

// UpsertTag returns the ID of the tag with this name and category,
// creating it if needed.
func (s *tagStore) UpsertTag(ctx context.Context, name, category string) (int64, error) {
	return upsertTag(ctx, s.store.db, name, category)
}

// UpsertAssignment assigns a tag to a bookmark.
func (s *tagStore) UpsertAssignment(
	ctx context.Context,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	return upsertAssignment(ctx, s.store.db, bookmarkID, tagID, confidence, autoGenerated)
}

// DeleteAssignments removes a bookmark's assignments.
func (s *tagStore) DeleteAssignments(ctx context.Context, bookmarkID int64, autoOnly bool) error {
	return deleteAssignments(ctx, s.store.db, bookmarkID, autoOnly)
}

// GetAssignments returns a bookmark's tags, highest confidence first.
func (s *tagStore) GetAssignments(ctx context.Context, bookmarkID int64) ([]domain.TagAssignment, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.category, bt.auto_generated, bt.confidence
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ?
		ORDER BY bt.confidence DESC, t.name ASC, t.category_key ASC
	`, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TagAssignment, 0)
	for rows.Next() {
		a := domain.TagAssignment{BookmarkID: bookmarkID}
		if err := rows.Scan(&a.Tag.ID, &a.Tag.Name, &a.Tag.Category, &a.AutoGenerated, &a.Confidence); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return out, nil
}

// BookmarksWithTags returns bookmarks carrying every name at or above
// minConfidence, with the best confidence per name.
func (s *tagStore) BookmarksWithTags(
	ctx context.Context,
	names []string,
	minConfidence float64,
) (map[int64]map[string]float64, error) {
	out := make(map[int64]map[string]float64)

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if n = domain.NormalizeTagName(n); n != "" {
			want[n] = true
		}
	}
	if len(want) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(want)+1)
	for n := range want {
		args = append(args, n)
	}
	args = append(args, minConfidence)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.name, MAX(bt.confidence)
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE t.name IN (`+placeholders(len(want))+`) AND bt.confidence > 0 AND bt.confidence >= ?
		GROUP BY bt.bookmark_id, t.name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tagged bookmarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var conf float64
		if err := rows.Scan(&id, &name, &conf); err != nil {
			return nil, fmt.Errorf("scanning tagged bookmark: %w", err)
		}
		m, ok := out[id]
		if !ok {
			m = make(map[string]float64, len(want))
			out[id] = m
		}
		m[name] = conf
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tagged bookmarks: %w", err)
	}

	for id, m := range out {
		if len(m) != len(want) {
			delete(out, id)
		}
	}
	return out, nil
}

// ListTags returns every tag with its bookmark count, most used first.
func (s *tagStore) ListTags(ctx context.Context) ([]domain.TagCount, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.category, COUNT(bt.bookmark_id) AS n,
			COALESCE(SUM(bt.auto_generated = 0), 0) AS user_n
		FROM tags t
		LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
		GROUP BY t.id
		ORDER BY n DESC, t.name ASC, t.category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TagCount, 0)
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Tag.ID, &tc.Tag.Name, &tc.Tag.Category, &tc.Count, &tc.UserCount); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return out, nil
}

// Atomic runs fn inside a transaction and commits only if fn succeeds.
func (s *tagStore) Atomic(ctx context.Context, fn func(tx driven.TagTx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&tagTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// tagTx implements driven.TagTx over an open transaction.
type tagTx struct {
	q querier
}

func (t *tagTx) UpsertTag(ctx context.Context, name, category string) (int64, error) {
	return upsertTag(ctx, t.q, name, category)
}

func (t *tagTx) UpsertAssignment(
	ctx context.Context,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	return upsertAssignment(ctx, t.q, bookmarkID, tagID, confidence, autoGenerated)
}

func (t *tagTx) DeleteAssignments(ctx context.Context, bookmarkID int64, autoOnly bool) error {
	return deleteAssignments(ctx, t.q, bookmarkID, autoOnly)
}

func upsertTag(ctx context.Context, q querier, name, category string) (int64, error) {
	name = domain.NormalizeTagName(name)
	category = domain.NormalizeCategory(category)
	if name == "" {
		return 0, fmt.Errorf("%w: empty tag name", domain.ErrInvalidInput)
	}

	// The no-op update makes RETURNING yield the existing row's id.
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO tags (name, category, category_key)
		VALUES (?, ?, ?)
		ON CONFLICT(name, category_key) DO UPDATE SET name = excluded.name
		RETURNING id
	`, name, category, domain.CategoryKey(category)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting tag: %w", err)
	}
	return id, nil
}

func upsertAssignment(
	ctx context.Context,
	q querier,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return fmt.Errorf("%w: confidence %.2f outside [0,1]", domain.ErrInvalidInput, confidence)
	}
	// A model write never replaces a user assignment.
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookmark_tags (bookmark_id, tag_id, confidence, auto_generated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bookmark_id, tag_id) DO UPDATE SET
			confidence = excluded.confidence,
			auto_generated = excluded.auto_generated
		WHERE bookmark_tags.auto_generated = 1 OR excluded.auto_generated = 0
	`, bookmarkID, tagID, confidence, autoGenerated)
	if isConstraint(err, sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY) {
		return fmt.Errorf("bookmark %d or tag %d: %w", bookmarkID, tagID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upserting assignment: %w", err)
	}
	return nil
}

func deleteAssignments(ctx context.Context, q querier, bookmarkID int64, autoOnly bool) error {
	query := "DELETE FROM bookmark_tags WHERE bookmark_id = ?"
	if autoOnly {
		query += " AND auto_generated = 1"
	}
	if _, err := q.ExecContext(ctx, query, bookmarkID); err != nil {
		return fmt.Errorf("deleting assignments: %w", err)
	}
	return nil
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

// UpsertEmbedding stores a vector, replacing any for the same version.
func (s *embeddingStore) UpsertEmbedding(ctx context.Context, rec domain.EmbeddingRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	vector := float32SliceToBytes(rec.Vector)
	if vector == nil {
		vector = []byte{}
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (bookmark_id, model_version, vector, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bookmark_id, model_version) DO UPDATE SET
			vector = excluded.vector,
			content_hash = excluded.content_hash,
			created_at = excluded.created_at
	`, rec.BookmarkID, rec.ModelVersion, vector,
		int64(rec.ContentHash), createdAt.UTC().UnixNano()) //nolint:gosec // bit pattern round-trips
	if isConstraint(err, sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY) {
		return fmt.Errorf("bookmark %d: %w", rec.BookmarkID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upserting embedding: %w", err)
	}
	return nil
}

// GetEmbedding returns the vector for a bookmark and version.
func (s *embeddingStore) GetEmbedding(ctx context.Context, bookmarkID int64, version string) (*domain.EmbeddingRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT bookmark_id, model_version, vector, content_hash, created_at
		FROM embeddings WHERE bookmark_id = ? AND model_version = ?
	`, bookmarkID, version)
	rec, err := scanEmbedding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	return rec, nil
}

// ListEmbeddings returns every vector of version ordered by bookmark ID.
func (s *embeddingStore) ListEmbeddings(ctx context.Context, version string) ([]domain.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT bookmark_id, model_version, vector, content_hash, created_at
		FROM embeddings WHERE model_version = ?
		ORDER BY bookmark_id
	`, version)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EmbeddingRecord, 0)
	for rows.Next() {
		rec, err := scanEmbedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return out, nil
}

// CountByVersion returns the number of vectors per model version.
func (s *embeddingStore) CountByVersion(ctx context.Context) (map[string]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT model_version, COUNT(*) FROM embeddings GROUP BY model_version")
	if err != nil {
		return nil, fmt.Errorf("counting embeddings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var version string
		var n int
		if err := rows.Scan(&version, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[version] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}

// ==================== Text Index ====================

// textIndex implements driven.TextIndex with FTS5.
type textIndex struct {
	store *Store
}

// TextSearch ranks bookmarks with bm25. Each query term is quoted so FTS5
// syntax in user input is matched literally, and any term matching is enough.
// The filter is applied before the limit.
func (s *textIndex) TextSearch(
	ctx context.Context,
	query string,
	filter domain.BookmarkFilter,
	limit int,
) ([]driven.TextHit, error) {
	match := ftsQuery(query)
	if match == "" || limit <= 0 {
		return []driven.TextHit{}, nil
	}

	where, filterArgs := filterClauses(filter)
	where = append([]string{"bookmark_fts MATCH ?"}, where...)
	args := append([]any{match}, filterArgs...)
	args = append(args, limit)

	// Column weights: title, description, content_snippet, url.
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT bookmark_fts.rowid, -bm25(bookmark_fts, 2.0, 1.0, 1.0, 0.5) AS score
		FROM bookmark_fts
		JOIN bookmarks b ON b.id = bookmark_fts.rowid
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY score DESC, bookmark_fts.rowid ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("searching text index: %w", err)
	}
	defer rows.Close()

	hits := make([]driven.TextHit, 0)
	for rows.Next() {
		var h driven.TextHit
		if err := rows.Scan(&h.BookmarkID, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning text hit: %w", err)
		}
		if h.Score > 0 {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating text hits: %w", err)
	}
	return hits, nil
}

// ftsQuery turns free text into an FTS5 OR query of quoted terms.
func ftsQuery(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (*domain.Bookmark, error) {
	var b domain.Bookmark
	var dateAdded int64
	if err := row.Scan(&b.ID, &b.URL, &b.Title, &b.Description, &b.ContentSnippet, &b.Source, &dateAdded); err != nil {
		return nil, err
	}
	b.DateAdded = time.Unix(0, dateAdded).UTC()
	return &b, nil
}

func scanBookmarks(rows *sql.Rows) ([]domain.Bookmark, error) {
	defer rows.Close()

	out := make([]domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookmarks: %w", err)
	}
	return out, nil
}

func scanEmbedding(row scanner) (*domain.EmbeddingRecord, error) {
	var rec domain.EmbeddingRecord
	var vector []byte
	var hash, createdAt int64
	if err := row.Scan(&rec.BookmarkID, &rec.ModelVersion, &vector, &hash, &createdAt); err != nil {
		return nil, err
	}
	rec.Vector = bytesToFloat32Slice(vector)
	rec.ContentHash = uint64(hash) //nolint:gosec // bit pattern round-trips
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

// bookmarkWriteError maps a unique URL violation to domain.ErrDuplicateBookmark.
func bookmarkWriteError(err error, url string) error {
	if isConstraint(err, sqlitelib.SQLITE_CONSTRAINT_UNIQUE) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateBookmark, url)
	}
	return fmt.Errorf("saving bookmark: %w", err)
}

// isConstraint reports whether err is the SQLite extended result code.
func isConstraint(err error, code int) bool {
	var se *sqlitedriver.Error
	return errors.As(err, &se) && se.Code() == code
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
