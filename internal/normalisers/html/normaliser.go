package html

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.ContentNormaliser = (*Normaliser)(nil)

const (
	// removedSelector matches elements that never hold readable content.
	removedSelector = "script, style, noscript, template, svg, iframe, head, nav, footer, form, button"

	// blockSelector matches elements that start a new line of text.
	blockSelector = "p, div, br, hr, h1, h2, h3, h4, h5, h6, li, tr, td, th, blockquote, pre, " +
		"section, article, header, aside, dd, dt, figcaption"

	// contentSelector matches the main content area when a page marks one.
	contentSelector = "main, article, [role=main]"
)

// markup detects an opening, closing or comment tag.
var markup = regexp.MustCompile(`<(?:[a-zA-Z][a-zA-Z0-9]*|/[a-zA-Z][a-zA-Z0-9]*|!--|!DOCTYPE)[\s>/]`)

// Normaliser extracts text from HTML snippets.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise returns the readable text of raw. Input without markup is
// returned with whitespace tidied.
func (n *Normaliser) Normalise(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !markup.MatchString(raw) {
		return tidy(raw), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: parsing html: %w", domain.ErrContentUnavailable, err)
	}

	doc.Find(removedSelector).Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
		s.AppendHtml("\n")
	})

	root := doc.Selection
	if main := doc.Find(contentSelector).First(); main.Length() > 0 && strings.TrimSpace(main.Text()) != "" {
		root = main
	}
	return tidy(root.Text()), nil
}

// tidy collapses runs of spaces, trims each line and drops blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
