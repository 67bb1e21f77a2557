// Package render rasterizes a template for one recipient into finished
// document bytes. Rendering is decoupled from hashing and QR encoding: the
// substitution data and the pre-rendered code image come in from the caller.
package render

import (
	"context"
	"fmt"
	"time"

	"certpass/internal/template"
	dErrors "certpass/pkg/domain-errors"
)

// Format selects the output serialization.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Options configure a renderer instance, not a single call: one renderer is
// shared across a whole batch.
type Options struct {
	Format Format

	// FontPath points at a TTF used for text elements. When empty the
	// renderer falls back to a small built-in face; documents stay legible
	// and tests need no font assets.
	FontPath   string
	FontPoints float64

	// FetchTimeout bounds each remote image fetch so a dead image host costs
	// one recipient, not the batch.
	FetchTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.FontPoints <= 0 {
		o.FontPoints = 24
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	return o
}

// Renderer produces one document per call. Implementations are not required
// to be safe for concurrent use; the pipeline renders sequentially.
type Renderer interface {
	Render(ctx context.Context, tmpl *template.Template, data template.Data, codeImage []byte) ([]byte, error)
}

// New builds a renderer for the requested format. An unsupported format is a
// construction-time error so batches never start against it.
func New(opts Options) (Renderer, error) {
	opts = opts.withDefaults()
	switch opts.Format {
	case FormatPNG:
		return newRaster(opts), nil
	case FormatPDF:
		return &pdfRenderer{raster: newRaster(opts)}, nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unsupported output format %q", opts.Format))
	}
}
