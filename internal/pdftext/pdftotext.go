package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
)

// PdftotextBackend converts through docconv, which shells out to poppler's pdftotext.
// pdftotext works on the whole document; pages are recovered from the form feeds it emits.
type PdftotextBackend struct{}

func (PdftotextBackend) Name() string { return BackendPdftotext }

func (PdftotextBackend) Open(data []byte) (Document, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}
	return splitPages(res.Body), nil
}

type pageList []string

func splitPages(body string) pageList {
	pages := strings.Split(body, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pageList(pages)
}

func (p pageList) NumPages() int { return len(p) }

func (p pageList) PageText(n int) (string, error) {
	if n < 1 || n > len(p) {
		return "", fmt.Errorf("page %d out of range", n)
	}
	return p[n-1], nil
}
