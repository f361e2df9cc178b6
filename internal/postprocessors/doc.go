// Package postprocessors holds text processing steps applied after
// normalisation and before embedding.
package postprocessors
