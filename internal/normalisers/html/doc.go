// Package html provides a ContentNormaliser for captured web pages.
// It extracts readable text from HTML, dropping scripts, styles and page
// chrome, and passes plain text through unchanged.
package html
