package document

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
)

const previewDPI = 96

// PreviewRenderer rasterizes the first PDF page with MuPDF
type PreviewRenderer struct{}

// NewPreviewRenderer creates a preview renderer
func NewPreviewRenderer() *PreviewRenderer {
	return &PreviewRenderer{}
}

var _ port.PreviewRenderer = (*PreviewRenderer)(nil)

// RenderPreview returns page one as PNG
func (p *PreviewRenderer) RenderPreview(pdf []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.ImageDPI(0, previewDPI)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
