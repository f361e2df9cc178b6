package models

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// softmaxTemperature sharpens cosine similarities into a distribution.
// Cosine scores between related texts differ by hundredths, so a low
// temperature is needed for the best label to stand out.
const softmaxTemperature = 0.05

// prototypeScorer is a zero-shot classifier: each label is represented by
// the embedding of its description and content is scored by similarity.
type prototypeScorer struct {
	embedder   driven.EmbeddingService
	labels     []domain.Label
	prototypes [][]float32
}

func newPrototypeScorer(embedder driven.EmbeddingService, labels []domain.Label, prototypes [][]float32) (*prototypeScorer, error) {
	if len(prototypes) != len(labels) {
		return nil, fmt.Errorf("got %d prototypes for %d labels", len(prototypes), len(labels))
	}
	for i, v := range prototypes {
		if len(v) == 0 || len(v) != len(prototypes[0]) {
			return nil, fmt.Errorf("prototype for label %q has %d dimensions", labels[i].Name, len(v))
		}
	}
	return &prototypeScorer{embedder: embedder, labels: labels, prototypes: prototypes}, nil
}

// Score returns every label with its softmax probability, highest first.
func (s *prototypeScorer) Score(ctx context.Context, text string) ([]domain.LabelScore, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != len(s.prototypes[0]) {
		return nil, fmt.Errorf("content vector has %d dimensions, prototypes have %d", len(vec), len(s.prototypes[0]))
	}

	sims := make([]float64, len(s.prototypes))
	for i, p := range s.prototypes {
		sims[i] = domain.CosineSimilarity(vec, p)
	}
	probs := softmax(sims, softmaxTemperature)

	scores := make([]domain.LabelScore, len(s.labels))
	for i, l := range s.labels {
		scores[i] = domain.LabelScore{Label: l.Name, Category: l.Category, Confidence: probs[i]}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Confidence > scores[j].Confidence })
	return scores, nil
}

// softmax converts scores into probabilities summing to 1.
func softmax(xs []float64, temperature float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	maxX := xs[0]
	for _, x := range xs[1:] {
		maxX = math.Max(maxX, x)
	}
	var sum float64
	for i, x := range xs {
		out[i] = math.Exp((x - maxX) / temperature)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
