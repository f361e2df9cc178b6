// Package memory provides in-memory implementations of the storage ports.
// They back tests and TAGMARK_EPHEMERAL runs. All stores share one lock so
// deleting a bookmark cascades to its tags and embeddings like SQLite does.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.BookmarkStore  = (*bookmarkStore)(nil)
	_ driven.TagStore       = (*tagStore)(nil)
	_ driven.TagTx          = (*tagTx)(nil)
	_ driven.EmbeddingStore = (*embeddingStore)(nil)
	_ driven.TextIndex      = (*textIndex)(nil)
)

// Store holds bookmarks, tags and embeddings in memory.
type Store struct {
	mu         sync.RWMutex
	bookmarks  map[int64]domain.Bookmark
	urls       map[string]int64
	nextID     int64
	tags       *tagState
	embeddings map[int64]map[string]domain.EmbeddingRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		bookmarks:  make(map[int64]domain.Bookmark),
		urls:       make(map[string]int64),
		tags:       newTagState(),
		embeddings: make(map[int64]map[string]domain.EmbeddingRecord),
	}
}

// BookmarkStore returns the bookmark store.
func (s *Store) BookmarkStore() driven.BookmarkStore { return &bookmarkStore{s} }

// TagStore returns the tag store.
func (s *Store) TagStore() driven.TagStore { return &tagStore{s} }

// EmbeddingStore returns the embedding store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore { return &embeddingStore{s} }

// TextIndex returns the full-text index.
func (s *Store) TextIndex() driven.TextIndex { return &textIndex{s} }

// =============================================================================
// BookmarkStore Implementation
// =============================================================================

type bookmarkStore struct {
	store *Store
}

// SaveBookmark inserts a bookmark when its ID is zero and updates it otherwise.
func (b *bookmarkStore) SaveBookmark(_ context.Context, bm *domain.Bookmark) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.urls[bm.URL]; ok && owner != bm.ID {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateBookmark, bm.URL)
	}

	if bm.ID == 0 {
		s.nextID++
		bm.ID = s.nextID
	} else {
		old, ok := s.bookmarks[bm.ID]
		if !ok {
			return domain.ErrNotFound
		}
		delete(s.urls, old.URL)
	}

	s.bookmarks[bm.ID] = *bm
	s.urls[bm.URL] = bm.ID
	return nil
}

// GetBookmark retrieves a bookmark by ID.
func (b *bookmarkStore) GetBookmark(_ context.Context, id int64) (*domain.Bookmark, error) {
	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.bookmarks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &bm, nil
}

// GetBookmarks retrieves the bookmarks that exist among ids.
func (b *bookmarkStore) GetBookmarks(_ context.Context, ids []int64) (map[int64]domain.Bookmark, error) {
	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Bookmark, len(ids))
	for _, id := range ids {
		if bm, ok := s.bookmarks[id]; ok {
			out[id] = bm
		}
	}
	return out, nil
}

// ListBookmarks returns matching bookmarks newest first.
func (b *bookmarkStore) ListBookmarks(_ context.Context, filter domain.BookmarkFilter) ([]domain.Bookmark, error) {
	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Bookmark, 0, len(s.bookmarks))
	for id, bm := range s.bookmarks {
		if !filter.Matches(&bm) {
			continue
		}
		if filter.Unclassified && len(s.tags.assigned[id]) > 0 {
			continue
		}
		out = append(out, bm)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].DateAdded.After(out[j].DateAdded)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset >= len(out) {
		return []domain.Bookmark{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteBookmark removes a bookmark with its assignments and embeddings.
func (b *bookmarkStore) DeleteBookmark(_ context.Context, id int64) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	bm, ok := s.bookmarks[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.bookmarks, id)
	delete(s.urls, bm.URL)
	delete(s.tags.assigned, id)
	delete(s.embeddings, id)
	return nil
}

// =============================================================================
// TagStore Implementation
// =============================================================================

// tagState is the tag vocabulary and the assignments. Transactions work on
// a clone and swap it in on success.
type tagState struct {
	tags     map[int64]domain.Tag
	keys     map[string]int64
	nextID   int64
	assigned map[int64]map[int64]assignment
}

// assignment is one (bookmark, tag) pair.
type assignment struct {
	confidence    float64
	autoGenerated bool
}

func newTagState() *tagState {
	return &tagState{
		tags:     make(map[int64]domain.Tag),
		keys:     make(map[string]int64),
		assigned: make(map[int64]map[int64]assignment),
	}
}

func (st *tagState) clone() *tagState {
	c := &tagState{
		tags:     make(map[int64]domain.Tag, len(st.tags)),
		keys:     make(map[string]int64, len(st.keys)),
		nextID:   st.nextID,
		assigned: make(map[int64]map[int64]assignment, len(st.assigned)),
	}
	for id, t := range st.tags {
		c.tags[id] = t
	}
	for k, id := range st.keys {
		c.keys[k] = id
	}
	for bid, m := range st.assigned {
		cm := make(map[int64]assignment, len(m))
		for tid, a := range m {
			cm[tid] = a
		}
		c.assigned[bid] = cm
	}
	return c
}

func (st *tagState) upsertTag(name, category string) (int64, error) {
	name = domain.NormalizeTagName(name)
	category = domain.NormalizeCategory(category)
	if name == "" {
		return 0, fmt.Errorf("%w: empty tag name", domain.ErrInvalidInput)
	}

	key := domain.TagKey(name, category)
	if id, ok := st.keys[key]; ok {
		return id, nil
	}

	st.nextID++
	st.tags[st.nextID] = domain.Tag{ID: st.nextID, Name: name, Category: category}
	st.keys[key] = st.nextID
	return st.nextID, nil
}

func (st *tagState) upsertAssignment(
	bookmarks map[int64]domain.Bookmark,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	if _, ok := bookmarks[bookmarkID]; !ok {
		return fmt.Errorf("bookmark %d: %w", bookmarkID, domain.ErrNotFound)
	}
	if _, ok := st.tags[tagID]; !ok {
		return fmt.Errorf("tag %d: %w", tagID, domain.ErrNotFound)
	}
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f outside [0,1]", domain.ErrInvalidInput, confidence)
	}
	m, ok := st.assigned[bookmarkID]
	if !ok {
		m = make(map[int64]assignment)
		st.assigned[bookmarkID] = m
	}
	// A model write never replaces a user assignment.
	if cur, ok := m[tagID]; ok && !cur.autoGenerated && autoGenerated {
		return nil
	}
	m[tagID] = assignment{confidence: confidence, autoGenerated: autoGenerated}
	return nil
}

func (st *tagState) deleteAssignments(bookmarkID int64, autoOnly bool) {
	if !autoOnly {
		delete(st.assigned, bookmarkID)
		return
	}
	for tid, a := range st.assigned[bookmarkID] {
		if a.autoGenerated {
			delete(st.assigned[bookmarkID], tid)
		}
	}
	if len(st.assigned[bookmarkID]) == 0 {
		delete(st.assigned, bookmarkID)
	}
}

type tagStore struct {
	store *Store
}

// UpsertTag returns the ID of the tag with this name and category,
// creating it if needed.
func (t *tagStore) UpsertTag(_ context.Context, name, category string) (int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.upsertTag(name, category)
}

// UpsertAssignment assigns a tag to a bookmark.
func (t *tagStore) UpsertAssignment(
	_ context.Context,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.upsertAssignment(s.bookmarks, bookmarkID, tagID, confidence, autoGenerated)
}

// GetAssignments returns a bookmark's tags, highest confidence first.
func (t *tagStore) GetAssignments(_ context.Context, bookmarkID int64) ([]domain.TagAssignment, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TagAssignment, 0, len(s.tags.assigned[bookmarkID]))
	for tid, a := range s.tags.assigned[bookmarkID] {
		out = append(out, domain.TagAssignment{
			BookmarkID:    bookmarkID,
			Tag:           s.tags.tags[tid],
			Confidence:    a.confidence,
			AutoGenerated: a.autoGenerated,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Tag.Name < out[j].Tag.Name
	})
	return out, nil
}

// DeleteAssignments removes a bookmark's assignments.
func (t *tagStore) DeleteAssignments(_ context.Context, bookmarkID int64, autoOnly bool) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags.deleteAssignments(bookmarkID, autoOnly)
	return nil
}

// BookmarksWithTags returns bookmarks carrying every name at or above
// minConfidence, with the best confidence per name.
func (t *tagStore) BookmarksWithTags(
	_ context.Context,
	names []string,
	minConfidence float64,
) (map[int64]map[string]float64, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]map[string]float64)
	if len(names) == 0 {
		return out, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[domain.NormalizeTagName(n)] = true
	}

	for bid, m := range s.tags.assigned {
		found := make(map[string]float64, len(want))
		for tid, a := range m {
			name := s.tags.tags[tid].Name
			if want[name] && a.confidence >= minConfidence && a.confidence > found[name] {
				found[name] = a.confidence
			}
		}
		if len(found) == len(want) {
			out[bid] = found
		}
	}
	return out, nil
}

// ListTags returns every tag with its bookmark count, most used first.
func (t *tagStore) ListTags(_ context.Context) ([]domain.TagCount, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int, len(s.tags.tags))
	users := make(map[int64]int)
	for _, m := range s.tags.assigned {
		for tid, a := range m {
			counts[tid]++
			if !a.autoGenerated {
				users[tid]++
			}
		}
	}
	out := make([]domain.TagCount, 0, len(s.tags.tags))
	for id, tag := range s.tags.tags {
		out = append(out, domain.TagCount{Tag: tag, Count: counts[id], UserCount: users[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Tag.Name != out[j].Tag.Name {
			return out[i].Tag.Name < out[j].Tag.Name
		}
		return out[i].Tag.Category < out[j].Tag.Category
	})
	return out, nil
}

// Atomic runs fn against a private copy of the tag state and publishes it
// only if fn succeeds.
func (t *tagStore) Atomic(_ context.Context, fn func(tx driven.TagTx) error) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tagTx{state: s.tags.clone(), bookmarks: s.bookmarks}
	if err := fn(tx); err != nil {
		return err
	}
	s.tags = tx.state
	return nil
}

type tagTx struct {
	state     *tagState
	bookmarks map[int64]domain.Bookmark
}

func (tx *tagTx) UpsertTag(_ context.Context, name, category string) (int64, error) {
	return tx.state.upsertTag(name, category)
}

func (tx *tagTx) UpsertAssignment(
	_ context.Context,
	bookmarkID, tagID int64,
	confidence float64,
	autoGenerated bool,
) error {
	return tx.state.upsertAssignment(tx.bookmarks, bookmarkID, tagID, confidence, autoGenerated)
}

func (tx *tagTx) DeleteAssignments(_ context.Context, bookmarkID int64, autoOnly bool) error {
	tx.state.deleteAssignments(bookmarkID, autoOnly)
	return nil
}

// =============================================================================
// EmbeddingStore Implementation
// =============================================================================

type embeddingStore struct {
	store *Store
}

// UpsertEmbedding stores a vector, replacing any for the same version.
func (e *embeddingStore) UpsertEmbedding(_ context.Context, rec domain.EmbeddingRecord) error {
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookmarks[rec.BookmarkID]; !ok {
		return fmt.Errorf("bookmark %d: %w", rec.BookmarkID, domain.ErrNotFound)
	}
	rec.Vector = append([]float32(nil), rec.Vector...)
	m, ok := s.embeddings[rec.BookmarkID]
	if !ok {
		m = make(map[string]domain.EmbeddingRecord)
		s.embeddings[rec.BookmarkID] = m
	}
	m[rec.ModelVersion] = rec
	return nil
}

// GetEmbedding returns the vector for a bookmark and version.
func (e *embeddingStore) GetEmbedding(_ context.Context, bookmarkID int64, version string) (*domain.EmbeddingRecord, error) {
	s := e.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.embeddings[bookmarkID][version]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// ListEmbeddings returns every vector of version ordered by bookmark ID.
func (e *embeddingStore) ListEmbeddings(_ context.Context, version string) ([]domain.EmbeddingRecord, error) {
	s := e.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmbeddingRecord, 0, len(s.embeddings))
	for _, m := range s.embeddings {
		if rec, ok := m[version]; ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookmarkID < out[j].BookmarkID })
	return out, nil
}

// CountByVersion returns the number of vectors per model version.
func (e *embeddingStore) CountByVersion(_ context.Context) (map[string]int, error) {
	s := e.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, m := range s.embeddings {
		for version := range m {
			counts[version]++
		}
	}
	return counts, nil
}

// =============================================================================
// TextIndex Implementation
// =============================================================================

type textIndex struct {
	store *Store
}

// TextSearch scores bookmarks by how often the query terms occur, with
// title matches counting double. Any term matching is enough. Bookmarks
// failing filter are skipped before the limit applies.
func (x *textIndex) TextSearch(
	_ context.Context,
	query string,
	filter domain.BookmarkFilter,
	limit int,
) ([]driven.TextHit, error) {
	terms := tokenize(query)
	if len(terms) == 0 || limit <= 0 {
		return []driven.TextHit{}, nil
	}

	s := x.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.TextHit, 0)
	for id, bm := range s.bookmarks {
		if !filter.Matches(&bm) || (filter.Unclassified && len(s.tags.assigned[id]) > 0) {
			continue
		}
		title := countTerms(tokenize(bm.Title), terms)
		body := countTerms(tokenize(bm.Description+" "+bm.ContentSnippet+" "+bm.URL), terms)
		if score := float64(2*title + body); score > 0 {
			hits = append(hits, driven.TextHit{BookmarkID: id, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].BookmarkID < hits[j].BookmarkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func countTerms(tokens, terms []string) int {
	var n int
	for _, tok := range tokens {
		for _, term := range terms {
			if tok == term {
				n++
			}
		}
	}
	return n
}
