package classifier

import (
	"fmt"
	"sort"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

type LabelMetrics struct {
	Label     constants.Label `json:"label" yaml:"label"`
	Precision float64         `json:"precision" yaml:"precision"`
	Recall    float64         `json:"recall" yaml:"recall"`
	F1        float64         `json:"f1" yaml:"f1"`
	Support   int             `json:"support" yaml:"support"`
}

// Report is diagnostic output; it never gates a single prediction.
// Confusion[i][j] counts samples whose actual label is Labels[i] and predicted label is Labels[j].
type Report struct {
	Samples        int               `json:"samples" yaml:"samples"`
	Labels         []constants.Label `json:"labels" yaml:"labels"`
	Accuracy       float64           `json:"accuracy" yaml:"accuracy"`
	MacroPrecision float64           `json:"macro_precision" yaml:"macro_precision"`
	MacroRecall    float64           `json:"macro_recall" yaml:"macro_recall"`
	MacroF1        float64           `json:"macro_f1" yaml:"macro_f1"`
	PerLabel       []LabelMetrics    `json:"per_label" yaml:"per_label"`
	Confusion      [][]int           `json:"confusion" yaml:"confusion"`
}

// Evaluate scores predictions against ground truth. Macro averages run over
// every label seen in either slice; a label never predicted has precision 0.
func Evaluate(actual, predicted []constants.Label) (Report, error) {
	if len(actual) != len(predicted) {
		return Report{}, common.NewAppError("EVAL_ERROR",
			fmt.Sprintf("%d actual labels but %d predictions", len(actual), len(predicted)), common.ErrInvalidInput)
	}
	if len(actual) == 0 {
		return Report{}, common.NewAppError("EVAL_ERROR", "nothing to evaluate", common.ErrInvalidInput)
	}

	labels := orderedLabels(append(append([]constants.Label{}, actual...), predicted...))
	pos := make(map[constants.Label]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	confusion := make([][]int, len(labels))
	for i := range confusion {
		confusion[i] = make([]int, len(labels))
	}
	correct := 0
	for i := range actual {
		confusion[pos[actual[i]]][pos[predicted[i]]]++
		if actual[i] == predicted[i] {
			correct++
		}
	}

	r := Report{
		Samples:   len(actual),
		Labels:    labels,
		Accuracy:  float64(correct) / float64(len(actual)),
		Confusion: confusion,
		PerLabel:  make([]LabelMetrics, len(labels)),
	}
	for k, l := range labels {
		tp := confusion[k][k]
		rowSum, colSum := 0, 0
		for j := range labels {
			rowSum += confusion[k][j]
			colSum += confusion[j][k]
		}
		m := LabelMetrics{Label: l, Support: rowSum}
		m.Precision = ratio(tp, colSum)
		m.Recall = ratio(tp, rowSum)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerLabel[k] = m
		r.MacroPrecision += m.Precision
		r.MacroRecall += m.Recall
		r.MacroF1 += m.F1
	}
	n := float64(len(labels))
	r.MacroPrecision /= n
	r.MacroRecall /= n
	r.MacroF1 /= n
	return r, nil
}

// EvaluateTexts predicts each normalized text without gating and scores the result.
func (b *Bundle) EvaluateTexts(texts []string, actual []constants.Label) (Report, error) {
	predicted := make([]constants.Label, len(texts))
	for i, t := range texts {
		predicted[i] = b.Best(t).Label
	}
	return Evaluate(actual, predicted)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func sortLabels(ls []constants.Label) {
	sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
}
