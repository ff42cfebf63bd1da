package classifier

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

var (
	slipTexts = []string{
		"boleto bancario cedente sacado vencimento nosso numero",
		"cedente agencia codigo vencimento valor cobrado sacado",
		"boleto sacado mora multa desconto abatimento vencimento",
		"nosso numero especie cedente autenticacao mecanica boleto",
	}
	invoiceTexts = []string{
		"nota fiscal eletronica emitente destinatario chave acesso",
		"nfe serie natureza operacao emitente razao social",
		"chave acesso nota fiscal consumidor final destinatario",
		"evento mais recente nota fiscal presenca comprador",
	}
)

func trainingSet() ([]string, []constants.Label) {
	var texts []string
	var labels []constants.Label
	for _, t := range slipTexts {
		texts = append(texts, t)
		labels = append(labels, constants.PaymentSlip)
	}
	for _, t := range invoiceTexts {
		texts = append(texts, t)
		labels = append(labels, constants.Invoice)
	}
	return texts, labels
}

func fitDefault(t *testing.T) *Bundle {
	t.Helper()
	texts, labels := trainingSet()
	b, err := Fit(texts, labels, Config{Alpha: DefaultAlpha, Vectorizer: VectorizerConfig{UseStopWords: true}})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return b
}

func TestFitVectorizer(t *testing.T) {
	tests := []struct {
		name   string
		corpus []string
		cfg    VectorizerConfig
		want   []string
	}{
		{"sorted terms", []string{"nota boleto cedente"}, VectorizerConfig{}, []string{"boleto", "cedente", "nota"}},
		{"drops short tokens", []string{"a b boleto x"}, VectorizerConfig{}, []string{"boleto"}},
		{"stop words removed", []string{"valor de para boleto"}, VectorizerConfig{UseStopWords: true}, []string{"boleto", "valor"}},
		{"stop words kept", []string{"valor de boleto"}, VectorizerConfig{}, []string{"boleto", "de", "valor"}},
		{"cap by frequency", []string{"aa aa aa bb bb cc dd"}, VectorizerConfig{MaxFeatures: 2}, []string{"aa", "bb"}},
		{"cap ties break lexically", []string{"dd cc bb bb aa aa aa"}, VectorizerConfig{MaxFeatures: 3}, []string{"aa", "bb", "cc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FitVectorizer(tt.corpus, tt.cfg)
			if err != nil {
				t.Fatalf("FitVectorizer: %v", err)
			}
			if got := v.Terms(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("terms = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFitVectorizerEmpty(t *testing.T) {
	_, err := FitVectorizer([]string{"", "a e o"}, VectorizerConfig{UseStopWords: true})
	if !errors.Is(err, common.ErrVocabularyMismatch) {
		t.Fatalf("expected ErrVocabularyMismatch, got %v", err)
	}
}

func TestTransformDropsUnseenTokens(t *testing.T) {
	v, err := FitVectorizer([]string{"boleto cedente nota"}, VectorizerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	fv := v.Transform("nota nota desconhecido boleto")
	want := FeatureVector{Indices: []int{0, 2}, Values: []float64{1, 2}}
	if !reflect.DeepEqual(fv, want) {
		t.Errorf("Transform = %+v, want %+v", fv, want)
	}
	if v.Size() != 3 {
		t.Errorf("vocabulary grew to %d", v.Size())
	}
}

func TestFitModelSmoothing(t *testing.T) {
	v, _ := FitVectorizer([]string{"boleto cedente", "nota fiscal nota"}, VectorizerConfig{})
	vectors := []FeatureVector{v.Transform("boleto cedente"), v.Transform("nota fiscal nota")}
	m, err := FitModel(vectors, []constants.Label{constants.PaymentSlip, constants.Invoice}, v.Size(), 1.0)
	if err != nil {
		t.Fatal(err)
	}
	nota, _ := v.Index("nota")
	fiscal, _ := v.Index("fiscal")
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"prior slip", m.LogPriors[0], math.Log(0.5)},
		{"P(fiscal|slip) unseen", m.LogLikelihoods[0][fiscal], math.Log(1.0 / 6.0)},
		{"P(nota|invoice)", m.LogLikelihoods[1][nota], math.Log(3.0 / 7.0)},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if m.Labels[0] != constants.PaymentSlip || m.Labels[1] != constants.Invoice {
		t.Errorf("labels not in canonical order: %v", m.Labels)
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name   string
		texts  []string
		labels []constants.Label
		alpha  float64
	}{
		{"empty", nil, nil, 1},
		{"length mismatch", []string{"boleto"}, nil, 1},
		{"single label", []string{"boleto", "cedente"}, []constants.Label{constants.PaymentSlip, constants.PaymentSlip}, 1},
		{"zero alpha", []string{"boleto", "nota"}, []constants.Label{constants.PaymentSlip, constants.Invoice}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Fit(tt.texts, tt.labels, Config{Alpha: tt.alpha}); !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPredict(t *testing.T) {
	b := fitDefault(t)

	res, err := b.Predict("boleto cedente vencimento sacado valor cobrado", DefaultThreshold)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Label != constants.PaymentSlip || res.Confidence < 0.5 || res.Confidence > 1 {
		t.Errorf("got %+v, want PAYMENT_SLIP with confidence in [0.5, 1]", res)
	}

	res, err = b.Predict("nota fiscal chave acesso emitente", DefaultThreshold)
	if err != nil || res.Label != constants.Invoice {
		t.Errorf("got %+v, %v, want INVOICE", res, err)
	}
}

func TestPosteriorsSumToOne(t *testing.T) {
	b := fitDefault(t)
	inputs := []string{"", "boleto", "nota fiscal", "palavras desconhecidas apenas", "boleto nota cedente fiscal"}
	for _, in := range inputs {
		post := b.Posteriors(in)
		sum := 0.0
		for _, p := range post {
			if p < 0 || p > 1 {
				t.Errorf("posterior %v out of [0,1] for %q", p, in)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("posteriors for %q sum to %v", in, sum)
		}
	}
}

func TestPredictLowConfidence(t *testing.T) {
	vec, err := newVectorizer([]string{"boleto"})
	if err != nil {
		t.Fatal(err)
	}
	b := &Bundle{
		Vectorizer: vec,
		Model: &Model{
			Labels:         []constants.Label{constants.PaymentSlip, constants.Invoice, constants.TaxStatement},
			ClassCounts:    []int{42, 30, 28},
			Alpha:          1,
			LogPriors:      []float64{math.Log(0.42), math.Log(0.30), math.Log(0.28)},
			LogLikelihoods: [][]float64{{0}, {0}, {0}},
		},
	}

	res, err := b.Predict("boleto", 0.5)
	var lc *common.LowConfidenceError
	if !errors.As(err, &lc) {
		t.Fatalf("expected LowConfidenceError, got %v (%+v)", err, res)
	}
	if math.Abs(lc.Confidence-0.42) > 1e-9 || lc.Label != constants.PaymentSlip {
		t.Errorf("diagnostics = %+v, want PAYMENT_SLIP at 0.42", lc)
	}
	if res.Label != "" {
		t.Errorf("no label should be returned, got %q", res.Label)
	}

	if res, err := b.Predict("boleto", 0.4); err != nil || res.Label != constants.PaymentSlip {
		t.Errorf("threshold 0.4: got %+v, %v", res, err)
	}
}

func TestEvaluate(t *testing.T) {
	actual := []constants.Label{constants.PaymentSlip, constants.PaymentSlip, constants.Invoice, constants.Invoice, constants.TaxStatement}
	predicted := []constants.Label{constants.PaymentSlip, constants.Invoice, constants.Invoice, constants.Invoice, constants.PaymentSlip}

	r, err := Evaluate(actual, predicted)
	if err != nil {
		t.Fatal(err)
	}
	wantConfusion := [][]int{
		{1, 1, 0},
		{0, 2, 0},
		{1, 0, 0},
	}
	if !reflect.DeepEqual(r.Confusion, wantConfusion) {
		t.Errorf("confusion = %v, want %v", r.Confusion, wantConfusion)
	}
	if r.Accuracy != 0.6 {
		t.Errorf("accuracy = %v, want 0.6", r.Accuracy)
	}
	// recall: slip 1/2, invoice 2/2, tax 0/1
	if math.Abs(r.MacroRecall-0.5) > 1e-12 {
		t.Errorf("macro recall = %v, want 0.5", r.MacroRecall)
	}
	// precision: slip 1/2, invoice 2/3, tax 0; f1: 0.5, 0.8, 0
	if math.Abs(r.MacroF1-1.3/3) > 1e-12 {
		t.Errorf("macro f1 = %v, want %v", r.MacroF1, 1.3/3)
	}
	if r.PerLabel[2].Support != 1 || r.PerLabel[2].Precision != 0 {
		t.Errorf("tax metrics = %+v", r.PerLabel[2])
	}

	if _, err := Evaluate(actual, predicted[:2]); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected length mismatch error, got %v", err)
	}
}

func TestTuneSmoothing(t *testing.T) {
	texts, labels := trainingSet()
	cfg := TuneConfig{Grid: []float64{2, 0.1, 1}, Folds: 4, Seed: 42}

	res, err := TuneSmoothing(texts, labels, cfg)
	if err != nil {
		t.Fatalf("TuneSmoothing: %v", err)
	}
	if len(res.Scores) != 3 || res.Scores[0].Alpha != 0.1 {
		t.Errorf("scores should cover the sorted grid: %+v", res.Scores)
	}
	found := false
	for _, s := range res.Scores {
		if s.Alpha == res.BestAlpha {
			found = true
			if s.MacroF1 != res.BestScore {
				t.Errorf("best score %v does not match grid entry %v", res.BestScore, s.MacroF1)
			}
		}
		if s.MacroF1 > res.BestScore {
			t.Errorf("alpha %v scored %v above the chosen best %v", s.Alpha, s.MacroF1, res.BestScore)
		}
	}
	if !found {
		t.Errorf("best alpha %v not in grid", res.BestAlpha)
	}

	again, err := TuneSmoothing(texts, labels, cfg)
	if err != nil || !reflect.DeepEqual(res, again) {
		t.Errorf("same seed should reproduce the search: %+v vs %+v (%v)", res, again, err)
	}

	if _, err := TuneSmoothing(texts, labels, TuneConfig{Folds: 100}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected folds error, got %v", err)
	}
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil)
	if _, err := h.Load(); !errors.Is(err, common.ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}

	first := fitDefault(t)
	second := fitDefault(t)
	h.Swap(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b, err := h.Load()
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := b.Predict("boleto cedente", 0); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	if old := h.Swap(second); old != first {
		t.Error("Swap should return the previous bundle")
	}
	wg.Wait()

	if b, _ := h.Load(); b != second {
		t.Error("Load should return the swapped-in bundle")
	}
}
