package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tagmark/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// instructions tell the client how the tagmark tools fit together.
const instructions = `tagmark stores bookmarks and tags them with a local classifier.

Use "search" to find bookmarks. Combine "query" for literal text, "tags" to
require tags and "semantic" to match by meaning. Call it with no arguments to
list the newest bookmarks. Each result carries its per-signal scores.

Use "add_bookmark" to save a page. Pass the page text or HTML as "content" so
the classifier has something to read. Use "list_tags" to see the vocabulary
before filtering by tag.

Resources: tagmark://tags lists every tag, tagmark://bookmarks lists recent
bookmarks and tagmark://bookmarks/{id} shows one bookmark with its tags.`

// classifyInstructions is appended when a classifier is wired.
const classifyInstructions = `

Use "classify" with "deep": true to re-tag a bookmark with the LLM tier when
its tags look thin. Tags a user added by hand are never replaced.`

// uriScheme prefixes every tagmark resource URI.
const uriScheme = "tagmark://"

// Server is the MCP server for tagmark.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "tagmark",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, serverOptions(ports)),
	}

	s.registerTools()
	s.registerResources()

	logger.Debug("MCP server ready: %d tools, classifier=%t", len(toolCatalog), ports.Classifier != nil)
	return s, nil
}

// serverOptions describes the tool set to the client. The classify guidance
// is left out when no classifier is wired.
func serverOptions(ports *Ports) *mcp.ServerOptions {
	var b strings.Builder
	b.WriteString(instructions)
	if ports.Classifier != nil {
		b.WriteString(classifyInstructions)
	}
	return &mcp.ServerOptions{Instructions: b.String()}
}

// Tool definitions. Input and output schemas are inferred from the handler
// types in tools.go.
var (
	searchTool = &mcp.Tool{
		Name:        "search",
		Description: "Search bookmarks by text, tags and meaning. An empty search lists the newest bookmarks.",
	}
	addBookmarkTool = &mcp.Tool{
		Name:        "add_bookmark",
		Description: "Save a bookmark and tag it with the local classifier",
	}
	classifyTool = &mcp.Tool{
		Name:        "classify",
		Description: "Re-run tagging for a stored bookmark",
	}
	listTagsTool = &mcp.Tool{
		Name:        "list_tags",
		Description: "List tags with the number of bookmarks carrying each",
	}

	toolCatalog = []*mcp.Tool{searchTool, addBookmarkTool, classifyTool, listTagsTool}
)

// Resource definitions.
var (
	tagsResource = &mcp.Resource{
		URI:         uriScheme + "tags",
		Name:        "tags",
		Description: "Every tag with its category and usage count",
		MIMEType:    "application/json",
	}
	recentResource = &mcp.Resource{
		URI:         uriScheme + "bookmarks",
		Name:        "recent-bookmarks",
		Description: "The most recently added bookmarks",
		MIMEType:    "application/json",
	}
	bookmarkTemplate = &mcp.ResourceTemplate{
		URITemplate: uriScheme + "bookmarks/{bookmarkId}",
		Name:        "bookmark",
		Description: "A bookmark with its tag assignments",
		MIMEType:    "application/json",
	}
)

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, searchTool, s.handleSearch)
	mcp.AddTool(s.server, addBookmarkTool, s.handleAddBookmark)
	mcp.AddTool(s.server, classifyTool, s.handleClassify)
	mcp.AddTool(s.server, listTagsTool, s.handleListTags)
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(tagsResource, s.handleTagsResource)
	s.server.AddResource(recentResource, s.handleRecentResource)
	s.server.AddResourceTemplate(bookmarkTemplate, s.handleBookmarkResource)
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("MCP server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
