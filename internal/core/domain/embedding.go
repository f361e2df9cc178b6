package domain

import (
	"math"
	"time"
)

// EmbeddingRecord is a bookmark vector produced by one model version.
// At most one record exists per (BookmarkID, ModelVersion).
type EmbeddingRecord struct {
	BookmarkID   int64
	ModelVersion string
	Vector       []float32

	// ContentHash fingerprints the embedded text so unchanged content is not
	// re-embedded under the same version.
	ContentHash uint64

	CreatedAt time.Time
}

// Neighbor is a nearest-neighbour hit. Lower distance is more similar.
type Neighbor struct {
	BookmarkID int64
	Distance   float64
}

// Similarity converts cosine distance in [0, 2] to a similarity in [0, 1].
func (n Neighbor) Similarity() float64 {
	s := 1 - n.Distance/2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// ReindexStats summarises a bulk re-embedding run.
type ReindexStats struct {
	ModelVersion string
	Embedded     int
	Skipped      int
	Failed       int
}

// CosineSimilarity returns the cosine similarity of a and b.
// Vectors of different length or zero magnitude yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 - CosineSimilarity, in the range [0, 2].
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// MeanPool averages equally sized vectors component-wise.
// It returns nil when vectors is empty or the dimensions disagree.
func MeanPool(vectors [][]float32) []float32 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}
	dims := len(vectors[0])
	out := make([]float32, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil
		}
		for i, x := range v {
			out[i] += x
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
