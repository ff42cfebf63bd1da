package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner renders the given number of pages and echoes each image name back as its text.
type fakeRunner struct {
	pages   []string
	failOCR bool
	calls   []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name)
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for _, p := range r.pages {
			if err := os.WriteFile(prefix+"-"+p+".png", nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if r.failOCR {
			return nil, []byte("Error opening data file por.traineddata"), errors.New("exit status 1")
		}
		return []byte("texto " + filepath.Base(args[0]) + "\n"), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func TestOCRBackendPageOrder(t *testing.T) {
	r := &fakeRunner{pages: []string{"1", "2", "10"}}
	doc, err := newOCRBackend(OCRConfig{}, r).Open([]byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if doc.NumPages() != 3 {
		t.Fatalf("pages = %d", doc.NumPages())
	}
	want := []string{"texto page-1.png\n", "texto page-2.png\n", "texto page-10.png\n"}
	for i, w := range want {
		got, err := doc.PageText(i + 1)
		if err != nil || got != w {
			t.Errorf("page %d = %q, %v; want %q", i+1, got, err, w)
		}
	}
}

func TestOCRBackendFailures(t *testing.T) {
	if _, err := newOCRBackend(OCRConfig{}, &fakeRunner{}).Open([]byte("%PDF")); err == nil {
		t.Error("expected error when no page is rendered")
	}
	_, err := newOCRBackend(OCRConfig{}, &fakeRunner{pages: []string{"1"}, failOCR: true}).Open([]byte("%PDF"))
	if err == nil || !strings.Contains(err.Error(), "traineddata") {
		t.Errorf("tesseract failure = %v", err)
	}
}

func TestExtractTextFallsBackToOCRWithoutTextLayer(t *testing.T) {
	scanned := fakeBackend{name: BackendLedongthuc, doc: fakeDoc{pages: []string{"   ", "\n"}}}
	ocr := newOCRBackend(OCRConfig{}, &fakeRunner{pages: []string{"1"}})
	e := newTestExtractor(t, false, scanned, ocr)

	res, err := e.ExtractText(context.Background(), strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if res.Backend != BackendOCR || res.Text != "texto page-1.png" {
		t.Errorf("result = %+v", res)
	}
}
