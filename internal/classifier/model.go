package classifier

import (
	"fmt"
	"math"
	"time"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

const (
	DefaultAlpha     = 1.0
	DefaultThreshold = 0.5
)

type Config struct {
	Alpha      float64 // additive smoothing, > 0
	Vectorizer VectorizerConfig
}

// Model is a multinomial naive Bayes parameter table. Rows of LogLikelihoods
// follow Labels; columns follow the vectorizer's feature indices.
type Model struct {
	Labels         []constants.Label
	ClassCounts    []int
	Alpha          float64
	LogPriors      []float64
	LogLikelihoods [][]float64
}

// Bundle pairs a vocabulary with the parameters fitted against it.
// The two are only ever saved, loaded and swapped together.
type Bundle struct {
	Vectorizer *Vectorizer
	Model      *Model
	TrainedAt  time.Time
}

type Result struct {
	Label      constants.Label
	Confidence float64
}

// Fit builds the vocabulary from normalized texts and fits the model on it.
func Fit(texts []string, labels []constants.Label, cfg Config) (*Bundle, error) {
	if len(texts) == 0 {
		return nil, common.NewAppError("FIT_ERROR", "empty training set", common.ErrInvalidInput)
	}
	if len(texts) != len(labels) {
		return nil, common.NewAppError("FIT_ERROR",
			fmt.Sprintf("%d texts but %d labels", len(texts), len(labels)), common.ErrInvalidInput)
	}
	if distinct(labels) < 2 {
		return nil, common.NewAppError("FIT_ERROR", "at least two labels are required", common.ErrInvalidInput)
	}

	vec, err := FitVectorizer(texts, cfg.Vectorizer)
	if err != nil {
		return nil, err
	}
	vectors := make([]FeatureVector, len(texts))
	for i, t := range texts {
		vectors[i] = vec.Transform(t)
	}
	m, err := FitModel(vectors, labels, vec.Size(), cfg.Alpha)
	if err != nil {
		return nil, err
	}
	return &Bundle{Vectorizer: vec, Model: m, TrainedAt: time.Now().UTC()}, nil
}

// FitModel estimates priors from label frequencies and
// P(t|c) = (count(t,c) + alpha) / (sum_t count(t,c) + alpha*|V|).
func FitModel(vectors []FeatureVector, labels []constants.Label, vocabSize int, alpha float64) (*Model, error) {
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, common.NewAppError("FIT_ERROR", fmt.Sprintf("smoothing alpha must be > 0, got %v", alpha), common.ErrInvalidInput)
	}
	if vocabSize <= 0 {
		return nil, common.VocabularyMismatchError("empty vocabulary", nil)
	}
	if len(vectors) == 0 || len(vectors) != len(labels) {
		return nil, common.NewAppError("FIT_ERROR",
			fmt.Sprintf("%d vectors for %d labels", len(vectors), len(labels)), common.ErrInvalidInput)
	}

	classes := orderedLabels(labels)
	row := make(map[constants.Label]int, len(classes))
	for i, l := range classes {
		row[l] = i
	}

	counts := make([][]float64, len(classes))
	for i := range counts {
		counts[i] = make([]float64, vocabSize)
	}
	classCounts := make([]int, len(classes))
	for i, fv := range vectors {
		c := row[labels[i]]
		classCounts[c]++
		for k, idx := range fv.Indices {
			counts[c][idx] += fv.Values[k]
		}
	}

	m := &Model{
		Labels:         classes,
		ClassCounts:    classCounts,
		Alpha:          alpha,
		LogPriors:      make([]float64, len(classes)),
		LogLikelihoods: make([][]float64, len(classes)),
	}
	n := float64(len(vectors))
	for c := range classes {
		m.LogPriors[c] = math.Log(float64(classCounts[c]) / n)

		total := 0.0
		for _, v := range counts[c] {
			total += v
		}
		denom := math.Log(total + alpha*float64(vocabSize))
		ll := make([]float64, vocabSize)
		for t, v := range counts[c] {
			ll[t] = math.Log(v+alpha) - denom
		}
		m.LogLikelihoods[c] = ll
	}
	return m, nil
}

// jointLogScores returns log P(c) + sum_t count(t) * log P(t|c) per class.
func (m *Model) jointLogScores(fv FeatureVector) []float64 {
	scores := make([]float64, len(m.Labels))
	for c := range m.Labels {
		s := m.LogPriors[c]
		ll := m.LogLikelihoods[c]
		for k, idx := range fv.Indices {
			s += fv.Values[k] * ll[idx]
		}
		scores[c] = s
	}
	return scores
}

// Posteriors returns the softmax of the joint log scores, aligned with Model.Labels.
func (m *Model) Posteriors(fv FeatureVector) []float64 {
	return softmax(m.jointLogScores(fv))
}

// Posteriors vectorizes normalized text and returns the per-class posterior.
func (b *Bundle) Posteriors(text string) []float64 {
	return b.Model.Posteriors(b.Vectorizer.Transform(text))
}

// Best returns the arg-max class without confidence gating. Evaluation uses it.
func (b *Bundle) Best(text string) Result {
	post := b.Posteriors(text)
	best := 0
	for c := 1; c < len(post); c++ {
		if post[c] > post[best] {
			best = c
		}
	}
	return Result{Label: b.Model.Labels[best], Confidence: clamp01(post[best])}
}

// Predict classifies normalized text. A winning posterior below threshold
// yields *common.LowConfidenceError and no label.
func (b *Bundle) Predict(text string, threshold float64) (Result, error) {
	r := b.Best(text)
	if r.Confidence < threshold {
		return Result{}, &common.LowConfidenceError{Label: r.Label, Confidence: r.Confidence, Threshold: threshold}
	}
	return r, nil
}

func softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	hi := scores[0]
	for _, s := range scores[1:] {
		if s > hi {
			hi = s
		}
	}
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// orderedLabels returns the distinct labels in canonical order, unknown extras last.
func orderedLabels(labels []constants.Label) []constants.Label {
	seen := make(map[constants.Label]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	out := make([]constants.Label, 0, len(seen))
	for _, l := range constants.AllLabels {
		if seen[l] {
			out = append(out, l)
			delete(seen, l)
		}
	}
	extra := make([]constants.Label, 0, len(seen))
	for l := range seen {
		extra = append(extra, l)
	}
	sortLabels(extra)
	return append(out, extra...)
}

func distinct(labels []constants.Label) int {
	seen := make(map[constants.Label]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
