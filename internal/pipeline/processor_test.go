package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/pdftext"
	"github.com/joseph-ayodele/docclass/internal/repository"
	"github.com/joseph-ayodele/docclass/internal/textnorm"
)

type textBackend struct{}

func (textBackend) Name() string { return "text" }

func (textBackend) Open(data []byte) (pdftext.Document, error) {
	if bytes.HasPrefix(data, []byte("BROKEN")) {
		return nil, errors.New("malformed xref table")
	}
	return onePage(string(data)), nil
}

type onePage string

func (onePage) NumPages() int                 { return 1 }
func (p onePage) PageText(int) (string, error) { return string(p), nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func slipText(i int) string {
	return fmt.Sprintf("Banco Exemplo S.A.\nCedente\nEMPRESA %d LTDA\nAgência/Código do Cedente\n%04d/12345-6\n"+
		"Vencimento\n%02d/05/2024\nValor do Documento\n%d,00\nSacado\nCLIENTE %d\n"+
		"Pagável em qualquer banco até o vencimento", i, i, i%28+1, 100+i, i)
}

func invoiceText(i int) string {
	return fmt.Sprintf("DANFE Documento Auxiliar da Nota Fiscal Eletrônica\nNFe No %d Série 1\n"+
		"Natureza da Operação VENDA DE MERCADORIA\nDados do Emitente\nRazão Social FORNECEDOR %d SA\n"+
		"Valor Nota Fiscal %d,00", 5000+i, i, 300+i)
}

func newTestProcessor(t *testing.T, threshold float64, opts ...Option) *Processor {
	t.Helper()
	var texts []string
	var labels []constants.Label
	for i := 0; i < 6; i++ {
		texts = append(texts, textnorm.Normalize(slipText(i)), textnorm.Normalize(invoiceText(i)))
		labels = append(labels, constants.PaymentSlip, constants.Invoice)
	}
	b, err := classifier.Fit(texts, labels, classifier.Config{Alpha: 1, Vectorizer: classifier.VectorizerConfig{UseStopWords: true}})
	if err != nil {
		t.Fatal(err)
	}
	ex, err := pdftext.NewExtractor(pdftext.Config{}, quiet(), pdftext.WithBackends(textBackend{}))
	if err != nil {
		t.Fatal(err)
	}
	d, err := extract.Default()
	if err != nil {
		t.Fatal(err)
	}
	return NewProcessor(quiet(), ex, classifier.NewHolder(b), d, threshold, opts...)
}

func newResults(t *testing.T) repository.ResultRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), common.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         "file:" + filepath.Join(t.TempDir(), "results.db") + "?_pragma=busy_timeout(5000)",
		DialTimeout: 5 * time.Second,
	}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return repository.NewResultRepository(db, quiet())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcessExtractsSlipFields(t *testing.T) {
	p := newTestProcessor(t, 0.5)

	out, err := p.Process(context.Background(), strings.NewReader(slipText(7)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Label != constants.PaymentSlip || out.Status != constants.JobStatusExtracted {
		t.Fatalf("got label=%s status=%s", out.Label, out.Status)
	}
	if out.Confidence < 0.5 || out.Confidence > 1 {
		t.Errorf("confidence = %v", out.Confidence)
	}
	slip, ok := out.Fields.(extract.PaymentSlipFields)
	if !ok {
		t.Fatalf("fields type %T", out.Fields)
	}
	if slip.Cedente.Nome != "EMPRESA 7 LTDA" {
		t.Errorf("Cedente.Nome = %q", slip.Cedente.Nome)
	}
	if out.Pages != 1 || out.Backend != "text" {
		t.Errorf("pages=%d backend=%q", out.Pages, out.Backend)
	}
}

func TestClassify(t *testing.T) {
	p := newTestProcessor(t, 0.5)
	r, err := p.Classify(context.Background(), strings.NewReader(invoiceText(9)))
	if err != nil {
		t.Fatal(err)
	}
	if r.Label != constants.Invoice {
		t.Errorf("label = %s", r.Label)
	}
}

func TestProcessLowConfidence(t *testing.T) {
	// no known terms: the posterior falls back to the balanced priors
	p := newTestProcessor(t, 0.6)
	out, err := p.Process(context.Background(), strings.NewReader("zzzz qqqq wwww"))

	var low *common.LowConfidenceError
	if !errors.As(err, &low) {
		t.Fatalf("err = %v, want LowConfidenceError", err)
	}
	if out.Status != constants.JobStatusUnrecognized || out.Label != "" || out.Fields != nil {
		t.Errorf("outcome = %+v", out)
	}
}

func TestProcessWithoutModel(t *testing.T) {
	ex, _ := pdftext.NewExtractor(pdftext.Config{}, quiet(), pdftext.WithBackends(textBackend{}))
	d, _ := extract.Default()
	p := NewProcessor(quiet(), ex, classifier.NewHolder(nil), d, 0.5)

	if _, err := p.Process(context.Background(), strings.NewReader(slipText(1))); !errors.Is(err, common.ErrModelNotLoaded) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessCanceled(t *testing.T) {
	p := newTestProcessor(t, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, strings.NewReader(slipText(1))); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessMaxBytes(t *testing.T) {
	p := newTestProcessor(t, 0.5, WithMaxBytes(16))
	if _, err := p.Process(context.Background(), strings.NewReader(slipText(1))); !errors.Is(err, common.ErrUnreadablePDF) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessFilePersists(t *testing.T) {
	ctx := context.Background()
	results := newResults(t)
	p := newTestProcessor(t, 0.5, WithResults(results))

	path := writeFile(t, "boleto.pdf", slipText(3))
	out, err := p.ProcessFile(ctx, path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	row, err := results.GetByID(ctx, out.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.Status != constants.JobStatusExtracted || row.Label != constants.PaymentSlip {
		t.Errorf("row = %+v", row)
	}
	if row.ContentHash != out.ContentHash || row.SourcePath != path {
		t.Errorf("row hash/path = %s %s", row.ContentHash, row.SourcePath)
	}
	if !strings.Contains(row.FieldsJSON, `"EMPRESA 3 LTDA"`) {
		t.Errorf("fields_json = %s", row.FieldsJSON)
	}

	// same bytes again update the same row
	again, err := p.ProcessFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != out.ID {
		t.Errorf("reprocessing created a new row: %s != %s", again.ID, out.ID)
	}
}

func TestProcessFileRecordsFailure(t *testing.T) {
	ctx := context.Background()
	results := newResults(t)
	p := newTestProcessor(t, 0.5, WithResults(results))

	path := writeFile(t, "broken.pdf", "BROKEN pdf")
	out, err := p.ProcessFile(ctx, path)
	if !errors.Is(err, common.ErrUnreadablePDF) {
		t.Fatalf("err = %v", err)
	}
	row, err := results.GetByID(ctx, out.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != constants.JobStatusFailed || row.ErrorMessage == "" {
		t.Errorf("row = %+v", row)
	}
}

func TestMarkQueued(t *testing.T) {
	ctx := context.Background()
	results := newResults(t)
	p := newTestProcessor(t, 0.5, WithResults(results))

	path := writeFile(t, "nf.pdf", invoiceText(2))
	if err := p.MarkQueued(ctx, path); err != nil {
		t.Fatal(err)
	}
	list, err := results.List(ctx, repository.ListFilter{Status: constants.JobStatusQueued})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SourcePath != path {
		t.Fatalf("queued rows = %+v", list)
	}
}
