package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// sourceMCP records bookmarks captured through the MCP server.
const sourceMCP = "mcp"

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query            string   `json:"query,omitempty" jsonschema:"literal text to match in titles, descriptions and content"`
	Tags             []string `json:"tags,omitempty" jsonschema:"tags every result must carry"`
	Semantic         string   `json:"semantic,omitempty" jsonschema:"natural language description to match by meaning"`
	MinTagConfidence float64  `json:"min_tag_confidence,omitempty" jsonschema:"minimum confidence for the required tags (0 to 1)"`
	Limit            int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Offset           int      `json:"offset,omitempty" jsonschema:"number of ranked results to skip"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	BookmarkID  int64               `json:"bookmark_id"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Description string              `json:"description,omitempty"`
	Score       float64             `json:"score"`
	Signals     domain.SignalScores `json:"signals"`
}

// AddBookmarkInput is the input schema for the add_bookmark tool.
type AddBookmarkInput struct {
	URL          string `json:"url" jsonschema:"absolute URL of the page"`
	Title        string `json:"title" jsonschema:"page title"`
	Description  string `json:"description,omitempty" jsonschema:"short summary of the page"`
	Content      string `json:"content,omitempty" jsonschema:"page text or HTML used for tagging"`
	SkipClassify bool   `json:"skip_classify,omitempty" jsonschema:"store without tagging it now"`
}

// AddBookmarkOutput is the output schema for the add_bookmark tool.
type AddBookmarkOutput struct {
	BookmarkID int64              `json:"bookmark_id"`
	Tags       []domain.ScoredTag `json:"tags"`
	Classified bool               `json:"classified"`
}

// ClassifyInput is the input schema for the classify tool.
type ClassifyInput struct {
	BookmarkID int64 `json:"bookmark_id" jsonschema:"ID of the bookmark to tag"`
	Deep       bool  `json:"deep,omitempty" jsonschema:"always run the LLM tier"`
}

// ClassifyOutput is the output schema for the classify tool.
type ClassifyOutput struct {
	BookmarkID   int64              `json:"bookmark_id"`
	Tags         []domain.ScoredTag `json:"tags"`
	TiersRun     []string           `json:"tiers_run"`
	Degraded     []string           `json:"degraded,omitempty"`
	Unclassified bool               `json:"unclassified"`
	EmbedError   string             `json:"embed_error,omitempty"`
}

// ListTagsInput is the input schema for the list_tags tool.
type ListTagsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list tags in this category"`
}

// ListTagsOutput is the output schema for the list_tags tool.
type ListTagsOutput struct {
	Tags []TagOutput `json:"tags"`
}

// TagOutput is one tag with its usage count.
type TagOutput struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Count     int    `json:"count"`
	UserCount int    `json:"user_count"`
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.ports.Search.Search(ctx, domain.Query{
		Text:             input.Query,
		Tags:             input.Tags,
		Semantic:         input.Semantic,
		MinTagConfidence: input.MinTagConfidence,
		Offset:           input.Offset,
		Limit:            limit,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		b := &results[i].Bookmark
		output.Results[i] = SearchResultOutput{
			BookmarkID:  b.ID,
			Title:       b.Title,
			URL:         b.URL,
			Description: b.Description,
			Score:       results[i].Score,
			Signals:     results[i].Signals,
		}
	}

	return nil, output, nil
}

// handleAddBookmark stores a bookmark and, unless asked not to, classifies it.
// A failed classification does not fail the capture.
func (s *Server) handleAddBookmark(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddBookmarkInput,
) (*mcp.CallToolResult, AddBookmarkOutput, error) {
	saved, err := s.ports.Bookmarks.Add(ctx, domain.Bookmark{
		URL:            input.URL,
		Title:          input.Title,
		Description:    input.Description,
		ContentSnippet: input.Content,
		Source:         sourceMCP,
	})
	if err != nil {
		return nil, AddBookmarkOutput{}, err
	}

	output := AddBookmarkOutput{BookmarkID: saved.ID, Tags: []domain.ScoredTag{}}
	if input.SkipClassify || s.ports.Classifier == nil {
		return nil, output, nil
	}

	result, err := s.ports.Classifier.ClassifyAndTag(ctx, *saved, domain.ClassifyOptions{})
	if err != nil {
		return textResult(fmt.Sprintf("Saved bookmark %d but tagging failed: %v", saved.ID, err)), output, nil
	}
	if result.Tags != nil {
		output.Tags = result.Tags
	}
	output.Classified = true
	return nil, output, nil
}

// handleClassify handles the classify tool invocation.
func (s *Server) handleClassify(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyInput,
) (*mcp.CallToolResult, ClassifyOutput, error) {
	if s.ports.Classifier == nil {
		return nil, ClassifyOutput{}, errors.New("classification is not available")
	}

	result, err := s.ports.Classifier.ClassifyByID(ctx, input.BookmarkID, domain.ClassifyOptions{Deep: input.Deep})
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	output := ClassifyOutput{
		BookmarkID:   result.BookmarkID,
		Tags:         result.Tags,
		TiersRun:     tierNames(result.TiersRun),
		Degraded:     tierNames(result.Degraded),
		Unclassified: result.Unclassified,
		EmbedError:   result.EmbedError,
	}
	if output.Tags == nil {
		output.Tags = []domain.ScoredTag{}
	}
	return nil, output, nil
}

func tierNames(tiers []domain.TierName) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = t.String()
	}
	return out
}

// handleListTags handles the list_tags tool invocation.
func (s *Server) handleListTags(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListTagsInput,
) (*mcp.CallToolResult, ListTagsOutput, error) {
	counts, err := s.ports.Bookmarks.ListTags(ctx)
	if err != nil {
		return nil, ListTagsOutput{}, err
	}

	want := domain.CategoryKey(input.Category)
	output := ListTagsOutput{Tags: make([]TagOutput, 0, len(counts))}
	for _, c := range counts {
		if want != "" && domain.CategoryKey(c.Tag.Category) != want {
			continue
		}
		output.Tags = append(output.Tags, TagOutput{
			Name:          c.Tag.Name,
			Category:      c.Tag.Category,
			Count:         c.Count,
			UserCount:     c.UserCount,
		})
	}
	return nil, output, nil
}

// textResult wraps a message for the assistant alongside structured output.
func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
