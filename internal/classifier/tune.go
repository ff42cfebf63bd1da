package classifier

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

var DefaultSmoothingGrid = []float64{0.01, 0.1, 0.5, 1.0, 2.0}

type TuneConfig struct {
	Grid       []float64
	Folds      int
	Seed       int64
	Vectorizer VectorizerConfig
}

type AlphaScore struct {
	Alpha   float64 `json:"alpha" yaml:"alpha"`
	MacroF1 float64 `json:"macro_f1" yaml:"macro_f1"`
}

type TuneResult struct {
	BestAlpha float64      `json:"best_alpha" yaml:"best_alpha"`
	BestScore float64      `json:"best_macro_f1" yaml:"best_macro_f1"`
	Scores    []AlphaScore `json:"scores" yaml:"scores"`
}

// TuneSmoothing k-fold cross-validates every alpha in the grid and keeps the one
// with the highest mean macro F1. Ties go to the smaller alpha. The vocabulary is
// refit on each training fold so held-out folds never leak into it.
func TuneSmoothing(texts []string, labels []constants.Label, cfg TuneConfig) (TuneResult, error) {
	var out TuneResult
	if len(texts) != len(labels) {
		return out, common.NewAppError("TUNE_ERROR",
			fmt.Sprintf("%d texts but %d labels", len(texts), len(labels)), common.ErrInvalidInput)
	}
	if cfg.Folds == 0 {
		cfg.Folds = 5
	}
	if cfg.Folds < 2 || cfg.Folds > len(texts) {
		return out, common.NewAppError("TUNE_ERROR",
			fmt.Sprintf("folds must be in [2, %d], got %d", len(texts), cfg.Folds), common.ErrInvalidInput)
	}
	grid := append([]float64(nil), cfg.Grid...)
	if len(grid) == 0 {
		grid = append(grid, DefaultSmoothingGrid...)
	}
	sort.Float64s(grid)

	folds := assignFolds(len(texts), cfg.Folds, cfg.Seed)

	// vectorize each split once; only alpha changes across the grid
	type split struct {
		train, test       []FeatureVector
		trainLbl, testLbl []constants.Label
		size              int
	}
	splits := make([]split, 0, cfg.Folds)
	for k := 0; k < cfg.Folds; k++ {
		var trainTexts []string
		var sp split
		var testTexts []string
		for i, f := range folds {
			if f == k {
				testTexts = append(testTexts, texts[i])
				sp.testLbl = append(sp.testLbl, labels[i])
			} else {
				trainTexts = append(trainTexts, texts[i])
				sp.trainLbl = append(sp.trainLbl, labels[i])
			}
		}
		vec, err := FitVectorizer(trainTexts, cfg.Vectorizer)
		if err != nil {
			return out, fmt.Errorf("fold %d: %w", k, err)
		}
		for _, t := range trainTexts {
			sp.train = append(sp.train, vec.Transform(t))
		}
		for _, t := range testTexts {
			sp.test = append(sp.test, vec.Transform(t))
		}
		sp.size = vec.Size()
		splits = append(splits, sp)
	}

	out.BestScore = -1
	for _, alpha := range grid {
		total := 0.0
		for k, sp := range splits {
			m, err := FitModel(sp.train, sp.trainLbl, sp.size, alpha)
			if err != nil {
				return out, fmt.Errorf("fold %d alpha %g: %w", k, alpha, err)
			}
			pred := make([]constants.Label, len(sp.test))
			for i, fv := range sp.test {
				pred[i] = m.argmax(fv)
			}
			rep, err := Evaluate(sp.testLbl, pred)
			if err != nil {
				return out, fmt.Errorf("fold %d: %w", k, err)
			}
			total += rep.MacroF1
		}
		score := total / float64(len(splits))
		out.Scores = append(out.Scores, AlphaScore{Alpha: alpha, MacroF1: score})
		if score > out.BestScore {
			out.BestScore = score
			out.BestAlpha = alpha
		}
	}
	return out, nil
}

func (m *Model) argmax(fv FeatureVector) constants.Label {
	scores := m.jointLogScores(fv)
	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return m.Labels[best]
}

// assignFolds shuffles indices with a seeded source and deals them round-robin.
func assignFolds(n, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	folds := make([]int, n)
	for pos, i := range rng.Perm(n) {
		folds[i] = pos % k
	}
	return folds
}
