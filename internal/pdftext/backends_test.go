package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/joseph-ayodele/docclass/internal/common"
)

// line is one row of text; each segment after the first is drawn 150pt to the right.
type line []string

// buildPDF writes a minimal PDF with one Helvetica text object per page.
// Helvetica is used without a Widths array, so readers only know glyph
// positions from the text matrix.
func buildPDF(pages ...[]line) []byte {
	var objs []string
	objs = append(objs, "") // catalog, filled below
	objs = append(objs, "") // page tree
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, lines := range pages {
		var cs strings.Builder
		y := 720
		for _, l := range lines {
			if len(l) == 0 {
				continue
			}
			fmt.Fprintf(&cs, "BT /F1 12 Tf 1 0 0 1 72 %d Tm (%s) Tj", y, escapePDF(l[0]))
			for _, seg := range l[1:] {
				fmt.Fprintf(&cs, " 150 0 Td (%s) Tj", escapePDF(seg))
			}
			cs.WriteString(" ET\n")
			y -= 16
		}
		content := cs.String()
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
		contentRef := len(objs)
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentRef))
		kids = append(kids, fmt.Sprintf("%d 0 R", len(objs)))
	}
	objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func escapePDF(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}

func TestRealBackendsKeepLineStructure(t *testing.T) {
	doc := buildPDF(
		[]line{{"Vencimento"}, {"10/05/2024"}},
		[]line{{"Valor do Documento"}, {"150,00"}, {"Sacado", "JOAO DA SILVA"}},
	)
	want := "Vencimento\n10/05/2024\nValor do Documento\n150,00\nSacado JOAO DA SILVA"

	for _, name := range []string{BackendLedongthuc, BackendPdfcpu} {
		t.Run(name, func(t *testing.T) {
			b, err := BackendByName(name)
			if err != nil {
				t.Fatal(err)
			}
			e := newTestExtractor(t, false, b)
			res, err := e.ExtractText(context.Background(), bytes.NewReader(doc))
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if res.Pages != 2 || res.Backend != name {
				t.Errorf("pages = %d backend = %s", res.Pages, res.Backend)
			}
			if res.Text != want {
				t.Errorf("text = %q, want %q", res.Text, want)
			}
		})
	}
}

func TestRealBackendsPageOrder(t *testing.T) {
	doc := buildPDF([]line{{"primeira"}}, []line{{"segunda"}}, []line{{"terceira"}})
	for _, name := range []string{BackendLedongthuc, BackendPdfcpu} {
		t.Run(name, func(t *testing.T) {
			b, _ := BackendByName(name)
			res, err := newTestExtractor(t, false, b).ExtractText(context.Background(), bytes.NewReader(doc))
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if res.Text != "primeira\nsegunda\nterceira" {
				t.Errorf("text = %q", res.Text)
			}
		})
	}
}

func TestRealBackendsBlankPage(t *testing.T) {
	blank := buildPDF([]line{})

	for _, name := range []string{BackendLedongthuc, BackendPdfcpu} {
		t.Run(name, func(t *testing.T) {
			b, _ := BackendByName(name)
			_, err := newTestExtractor(t, false, b).ExtractText(context.Background(), bytes.NewReader(blank))
			if !errors.Is(err, common.ErrUnreadablePDF) {
				t.Fatalf("expected ErrUnreadablePDF, got %v", err)
			}
		})
	}

	t.Run("falls back to the next backend", func(t *testing.T) {
		empty := fakeBackend{name: "scan", doc: fakeDoc{pages: []string{""}}}
		doc := buildPDF([]line{{"Nota Fiscal"}})
		res, err := newTestExtractor(t, false, empty, LedongthucBackend{}).ExtractText(context.Background(), bytes.NewReader(doc))
		if err != nil {
			t.Fatalf("ExtractText: %v", err)
		}
		if res.Backend != BackendLedongthuc || res.Text != "Nota Fiscal" {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestLayoutRowsSeparatesWords(t *testing.T) {
	doc := buildPDF([]line{{"Agencia", "1234/56789-0"}})
	d, err := LedongthucBackend{}.Open(doc)
	if err != nil {
		t.Fatal(err)
	}
	text, err := d.PageText(1)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Agencia 1234/56789-0\n" {
		t.Errorf("page text = %q", text)
	}
}
