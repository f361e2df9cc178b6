package mcp

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Bookmarks: &mockBookmarkService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Bookmarks: &mockBookmarkService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil bookmark service returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingBookmarkService)
	})

	t.Run("classifier is optional", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Bookmarks: &mockBookmarkService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:     &mockSearchService{},
			Bookmarks:  &mockBookmarkService{},
			Classifier: &mockClassifier{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestServerOptions(t *testing.T) {
	t.Run("instructions name every tool and resource", func(t *testing.T) {
		opts := serverOptions(&Ports{Search: &mockSearchService{}, Bookmarks: &mockBookmarkService{}})
		for _, tool := range []*mcp.Tool{searchTool, addBookmarkTool, listTagsTool} {
			assert.Contains(t, opts.Instructions, `"`+tool.Name+`"`)
		}
		assert.Contains(t, opts.Instructions, tagsResource.URI)
		assert.Contains(t, opts.Instructions, recentResource.URI)
	})

	t.Run("classify guidance needs a classifier", func(t *testing.T) {
		without := serverOptions(&Ports{Search: &mockSearchService{}, Bookmarks: &mockBookmarkService{}})
		assert.NotContains(t, without.Instructions, `"classify"`)

		with := serverOptions(&Ports{
			Search:     &mockSearchService{},
			Bookmarks:  &mockBookmarkService{},
			Classifier: &mockClassifier{},
		})
		assert.Contains(t, with.Instructions, `"classify"`)
		assert.Contains(t, with.Instructions, `"deep"`)
	})
}

func TestToolCatalog(t *testing.T) {
	seen := make(map[string]bool, len(toolCatalog))
	for _, tool := range toolCatalog {
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.False(t, seen[tool.Name], "duplicate tool %s", tool.Name)
		seen[tool.Name] = true
	}
	assert.Equal(t, map[string]bool{
		"search":       true,
		"add_bookmark": true,
		"classify":     true,
		"list_tags":    true,
	}, seen)
	assert.Equal(t, uriScheme+"bookmarks/{bookmarkId}", bookmarkTemplate.URITemplate)
}
