// Package classifier holds the count vectorizer and the multinomial naive Bayes model.
package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docclass/internal/common"
)

const (
	DefaultMaxFeatures = 5000
	minTokenLen        = 2
)

type VectorizerConfig struct {
	MaxFeatures  int  // 0 -> DefaultMaxFeatures
	UseStopWords bool // drop Portuguese stop words
}

// FeatureVector is a sparse count vector; Indices are strictly increasing.
type FeatureVector struct {
	Indices []int
	Values  []float64
}

func (f FeatureVector) Len() int { return len(f.Indices) }

// Vectorizer maps normalized text onto a vocabulary fixed at fit time.
// It is never mutated after construction.
type Vectorizer struct {
	vocabulary map[string]int
	terms      []string
}

// FitVectorizer builds the vocabulary from normalized texts: tokens of two or more
// letters, minus stop words, capped at MaxFeatures by corpus frequency (ties broken
// lexically). Indices follow lexical order of the kept terms.
func FitVectorizer(corpus []string, cfg VectorizerConfig) (*Vectorizer, error) {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}
	var stop map[string]struct{}
	if cfg.UseStopWords {
		stop = stopWordSet(portugueseStopWords)
	}

	freq := make(map[string]int)
	for _, doc := range corpus {
		for _, tok := range tokenize(doc) {
			if _, skip := stop[tok]; skip {
				continue
			}
			freq[tok]++
		}
	}
	if len(freq) == 0 {
		return nil, common.VocabularyMismatchError("corpus produced an empty vocabulary", nil)
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	if len(terms) > cfg.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if freq[terms[i]] != freq[terms[j]] {
				return freq[terms[i]] > freq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:cfg.MaxFeatures]
	}
	sort.Strings(terms)
	return newVectorizer(terms)
}

func newVectorizer(terms []string) (*Vectorizer, error) {
	if len(terms) == 0 {
		return nil, common.VocabularyMismatchError("empty vocabulary", nil)
	}
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		if _, dup := vocab[t]; dup {
			return nil, common.VocabularyMismatchError(fmt.Sprintf("duplicate term %q", t), nil)
		}
		vocab[t] = i
	}
	return &Vectorizer{vocabulary: vocab, terms: terms}, nil
}

// Transform counts known tokens; unseen tokens are dropped.
func (v *Vectorizer) Transform(text string) FeatureVector {
	counts := make(map[int]float64)
	for _, tok := range tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	fv := FeatureVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		fv.Indices = append(fv.Indices, idx)
	}
	sort.Ints(fv.Indices)
	for _, idx := range fv.Indices {
		fv.Values = append(fv.Values, counts[idx])
	}
	return fv
}

func (v *Vectorizer) Size() int { return len(v.terms) }

// Terms returns a copy of the vocabulary in index order.
func (v *Vectorizer) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Index returns the feature index of term.
func (v *Vectorizer) Index(term string) (int, bool) {
	i, ok := v.vocabulary[term]
	return i, ok
}

// Fingerprint identifies the vocabulary; both persisted artifacts carry it.
func (v *Vectorizer) Fingerprint() string {
	return fingerprint(v.terms)
}

func fingerprint(terms []string) string {
	h := sha256.New()
	for _, t := range terms {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}
