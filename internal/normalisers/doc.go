// Package normalisers provides implementations of the ContentNormaliser
// interface. Each normaliser turns captured page content into plain text
// for classification and embedding.
package normalisers
