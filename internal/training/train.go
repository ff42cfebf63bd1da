package training

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
)

const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

type Options struct {
	TestFraction float64
	Seed         int64
	Classifier   classifier.Config
}

type Outcome struct {
	Bundle    *classifier.Bundle
	Report    classifier.Report
	TrainSize int
	TestSize  int
	Duration  time.Duration
}

// TrainAndEvaluate fits on a seeded random split of the corpus and reports
// metrics on the held-out part. With nothing held out the report is empty.
func TrainAndEvaluate(corpus []TrainingExample, opts Options) (Outcome, error) {
	start := time.Now()
	if len(corpus) == 0 {
		return Outcome{}, common.NewAppError("FIT_ERROR", "empty corpus", common.ErrInvalidInput)
	}
	if opts.TestFraction < 0 || opts.TestFraction >= 1 {
		return Outcome{}, common.NewAppError("FIT_ERROR",
			fmt.Sprintf("test fraction must be in [0,1), got %v", opts.TestFraction), common.ErrInvalidInput)
	}

	trainIdx, testIdx := Split(len(corpus), opts.TestFraction, opts.Seed)
	texts, labels := columns(corpus, trainIdx)

	bundle, err := classifier.Fit(texts, labels, opts.Classifier)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Bundle: bundle, TrainSize: len(trainIdx), TestSize: len(testIdx)}
	if len(testIdx) > 0 {
		testTexts, testLabels := columns(corpus, testIdx)
		out.Report, err = bundle.EvaluateTexts(testTexts, testLabels)
		if err != nil {
			return Outcome{}, err
		}
	}
	out.Duration = time.Since(start)
	return out, nil
}

// TrainAll fits on the whole corpus. Retraining uses it once the split was reviewed offline.
func TrainAll(corpus []TrainingExample, cfg classifier.Config) (*classifier.Bundle, error) {
	all := make([]int, len(corpus))
	for i := range all {
		all[i] = i
	}
	texts, labels := columns(corpus, all)
	return classifier.Fit(texts, labels, cfg)
}

// Tune cross-validates the smoothing grid over the whole corpus.
func Tune(corpus []TrainingExample, cfg classifier.TuneConfig) (classifier.TuneResult, error) {
	all := make([]int, len(corpus))
	for i := range all {
		all[i] = i
	}
	texts, labels := columns(corpus, all)
	return classifier.TuneSmoothing(texts, labels, cfg)
}

func columns(corpus []TrainingExample, idx []int) ([]string, []constants.Label) {
	texts := make([]string, len(idx))
	labels := make([]constants.Label, len(idx))
	for i, j := range idx {
		texts[i] = corpus[j].NormalizedText
		labels[i] = corpus[j].Label
	}
	return texts, labels
}
