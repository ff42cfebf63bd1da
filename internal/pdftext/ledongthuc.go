package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// glyphs whose baselines differ by less than this share a line
	rowTolerance = 2.0
	// horizontal gap, as a fraction of the font size, read as a word break
	wordGap = 0.2
)

// LedongthucBackend is the pure-Go default. The reader panics on some malformed
// xref tables and fonts, so every entry point recovers.
type LedongthucBackend struct{}

func (LedongthucBackend) Name() string { return BackendLedongthuc }

func (LedongthucBackend) Open(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &ledongthucDocument{r: rd}, nil
}

type ledongthucDocument struct {
	r *pdf.Reader
}

func (d *ledongthucDocument) NumPages() (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	return d.r.NumPage()
}

func (d *ledongthucDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: decode panic: %v", n, r)
		}
	}()
	p := d.r.Page(n)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", n)
	}
	return layoutRows(p.Content().Text), nil
}

type textRow struct {
	y     float64
	glyph []pdf.Text
}

// layoutRows rebuilds the page's lines from positioned glyphs. Rows are
// emitted top to bottom and a space is inserted where two glyphs on a row
// are visibly apart.
func layoutRows(texts []pdf.Text) string {
	var rows []*textRow
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		var row *textRow
		for _, r := range rows {
			if math.Abs(t.Y-r.y) <= rowTolerance {
				row = r
				break
			}
		}
		if row == nil {
			row = &textRow{y: t.Y}
			rows = append(rows, row)
		}
		row.glyph = append(row.glyph, t)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var sb strings.Builder
	for _, r := range rows {
		// stable: glyphs without width metrics share an X and keep stream order
		sort.SliceStable(r.glyph, func(i, j int) bool { return r.glyph[i].X < r.glyph[j].X })
		var line strings.Builder
		end := 0.0
		for i, g := range r.glyph {
			if i > 0 && g.X-end > wordGap*fontSize(g) {
				if s := line.String(); !strings.HasSuffix(s, " ") && g.S != " " {
					line.WriteByte(' ')
				}
			}
			line.WriteString(g.S)
			if e := g.X + g.W; i == 0 || e > end {
				end = e
			}
		}
		sb.WriteString(strings.TrimSpace(line.String()))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize <= 0 {
		return 1
	}
	return t.FontSize
}

