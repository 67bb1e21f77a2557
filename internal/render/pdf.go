package render

import (
	"bytes"
	"context"

	"github.com/go-pdf/fpdf"

	"certpass/internal/template"
	dErrors "certpass/pkg/domain-errors"
)

// pdfRenderer rasterizes the page and wraps it in a single-page PDF sized to
// the template. Keeping layout in one code path means PNG and PDF exports of
// the same template are pixel-identical.
type pdfRenderer struct {
	raster *rasterRenderer
}

func (r *pdfRenderer) Render(ctx context.Context, tmpl *template.Template, data template.Data, codeImage []byte) ([]byte, error) {
	page, err := r.raster.Render(ctx, tmpl, data, codeImage)
	if err != nil {
		return nil, err
	}

	w, h := float64(tmpl.Width), float64(tmpl.Height)
	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: w, Ht: h},
	})
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("page", opts, bytes.NewReader(page))
	doc.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "serialize pdf")
	}
	return buf.Bytes(), nil
}
