// Package mcp provides an MCP (Model Context Protocol) server adapter for tagmark.
// It is the chat-bot entry point: assistants can capture, classify and
// search bookmarks through it.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingBookmarkService is returned when the bookmark service is not provided.
var ErrMissingBookmarkService = errors.New("mcp: bookmark service is required")
