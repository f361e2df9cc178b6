package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// recentLimit is how many bookmarks the recent resource lists.
const recentLimit = 25

// recentQuery is the empty query, which ranks by recency.
var recentQuery = domain.Query{Limit: recentLimit}

// handleTagsResource returns every tag with its usage count.
func (s *Server) handleTagsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	counts, err := s.ports.Bookmarks.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return jsonResource(req.Params.URI, counts)
}

// handleRecentResource returns the newest bookmarks.
func (s *Server) handleRecentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	results, err := s.ports.Search.Search(ctx, recentQuery)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}

	type bookmarkInfo struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	infos := make([]bookmarkInfo, len(results))
	for i := range results {
		infos[i] = bookmarkInfo{
			ID:    results[i].Bookmark.ID,
			Title: results[i].Bookmark.Title,
			URL:   results[i].Bookmark.URL,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleBookmarkResource returns one bookmark and its tags.
func (s *Server) handleBookmarkResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract bookmarkId from URI: tagmark://bookmarks/{bookmarkId}
	id, ok := extractBookmarkID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	b, err := s.ports.Bookmarks.Get(ctx, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	tags, err := s.ports.Bookmarks.Tags(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting tags: %w", err)
	}

	type tagInfo struct {
		Name       string  `json:"name"`
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		User       bool    `json:"user_assigned"`
	}

	out := struct {
		ID          int64     `json:"id"`
		URL         string    `json:"url"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Source      string    `json:"source,omitempty"`
		DateAdded   string    `json:"date_added"`
		Tags        []tagInfo `json:"tags"`
	}{
		ID:          b.ID,
		URL:         b.URL,
		Title:       b.Title,
		Description: b.Description,
		Source:      b.Source,
		DateAdded:   b.DateAdded.UTC().Format("2006-01-02T15:04:05Z"),
		Tags:        make([]tagInfo, len(tags)),
	}
	for i, a := range tags {
		out.Tags[i] = tagInfo{
			Name:       a.Tag.Name,
			Category:   a.Tag.Category,
			Confidence: a.Confidence,
			User:       !a.AutoGenerated,
		}
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractBookmarkID extracts the bookmark ID from a URI like tagmark://bookmarks/{bookmarkId}.
func extractBookmarkID(uri string) (int64, bool) {
	const prefix = uriScheme + "bookmarks/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
