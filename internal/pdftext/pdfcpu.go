package pdftext

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PdfcpuBackend validates the document with pdfcpu and scans each page's
// content stream for text-showing operators.
type PdfcpuBackend struct{}

func (PdfcpuBackend) Name() string { return BackendPdfcpu }

func (PdfcpuBackend) Open(data []byte) (Document, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &pdfcpuDocument{ctx: ctx}, nil
}

type pdfcpuDocument struct {
	ctx *model.Context
}

func (d *pdfcpuDocument) NumPages() int { return d.ctx.PageCount }

func (d *pdfcpuDocument) PageText(n int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(d.ctx, n)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("page %d: read content: %w", n, err)
	}
	return TextFromContentStream(data), nil
}
