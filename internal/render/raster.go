package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"certpass/internal/template"
	dErrors "certpass/pkg/domain-errors"
)

type rasterRenderer struct {
	opts   Options
	client *http.Client

	mu    sync.Mutex
	faces map[float64]font.Face
}

func newRaster(opts Options) *rasterRenderer {
	return &rasterRenderer{
		opts:   opts,
		client: &http.Client{Timeout: opts.FetchTimeout},
		faces:  make(map[float64]font.Face),
	}
}

func (r *rasterRenderer) Render(ctx context.Context, tmpl *template.Template, data template.Data, codeImage []byte) ([]byte, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(tmpl.Width, tmpl.Height)

	// Background compositing happens before any element layering.
	bg := tmpl.Background
	if bg == "" {
		bg = "#ffffff"
	}
	dc.SetHexColor(bg)
	dc.Clear()

	if tmpl.BackgroundImage != "" {
		if img, err := r.fetchImage(ctx, tmpl.BackgroundImage); err == nil {
			dc.DrawImage(scaleTo(img, tmpl.Width, tmpl.Height), 0, 0)
		} else {
			// A missing background degrades to the flat color.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	for i := range tmpl.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		el := &tmpl.Elements[i]
		if el.Hidden {
			continue
		}

		rotated := el.Rotation != 0
		if rotated {
			dc.Push()
			dc.RotateAbout(gg.Radians(el.Rotation), el.X+el.Width/2, el.Y+el.Height/2)
		}

		switch el.Kind {
		case template.KindText:
			r.drawText(dc, el, data)
		case template.KindQRCode:
			r.drawQR(dc, el, codeImage)
		case template.KindImage:
			r.drawImage(ctx, dc, el)
		case template.KindShape:
			drawShape(dc, el)
		}

		if rotated {
			dc.Pop()
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode document png")
	}
	return buf.Bytes(), nil
}

func (r *rasterRenderer) drawText(dc *gg.Context, el *template.Element, data template.Data) {
	content := template.Substitute(el.Text.Content, data)
	if content == "" {
		return
	}

	color := el.Text.Color
	if color == "" {
		color = "#000000"
	}
	dc.SetHexColor(color)
	dc.SetFontFace(r.face(el.Text.Size))

	align := gg.AlignLeft
	ax := 0.0
	x := el.X
	switch el.Text.Align {
	case "center":
		align, ax, x = gg.AlignCenter, 0.5, el.X+el.Width/2
	case "right":
		align, ax, x = gg.AlignRight, 1.0, el.X+el.Width
	}

	width := el.Width
	if width <= 0 {
		width = float64(dc.Width()) - el.X
	}
	dc.DrawStringWrapped(content, x, el.Y, ax, 0, width, 1.4, align)
}

func (r *rasterRenderer) drawQR(dc *gg.Context, el *template.Element, codeImage []byte) {
	if len(codeImage) == 0 {
		placeholderBox(dc, el)
		return
	}
	img, err := png.Decode(bytes.NewReader(codeImage))
	if err != nil {
		placeholderBox(dc, el)
		return
	}
	dc.DrawImage(scaleTo(img, int(el.Width), int(el.Height)), int(el.X), int(el.Y))
}

func (r *rasterRenderer) drawImage(ctx context.Context, dc *gg.Context, el *template.Element) {
	img, err := r.fetchImage(ctx, el.Image.Source)
	if err != nil {
		// Broken source renders a placeholder box rather than failing the
		// whole document.
		placeholderBox(dc, el)
		return
	}
	dc.DrawImage(scaleTo(img, int(el.Width), int(el.Height)), int(el.X), int(el.Y))
}

func drawShape(dc *gg.Context, el *template.Element) {
	fill, stroke, strokeWidth := "#000000", "", 0.0
	if el.Shape != nil {
		if el.Shape.Fill != "" {
			fill = el.Shape.Fill
		}
		stroke = el.Shape.Stroke
		strokeWidth = el.Shape.StrokeWidth
	}

	dc.DrawRectangle(el.X, el.Y, el.Width, el.Height)
	dc.SetHexColor(fill)
	if stroke != "" && strokeWidth > 0 {
		dc.FillPreserve()
		dc.SetHexColor(stroke)
		dc.SetLineWidth(strokeWidth)
		dc.Stroke()
		return
	}
	dc.Fill()
}

func placeholderBox(dc *gg.Context, el *template.Element) {
	dc.DrawRectangle(el.X, el.Y, el.Width, el.Height)
	dc.SetHexColor("#e0e0e0")
	dc.FillPreserve()
	dc.SetHexColor("#9e9e9e")
	dc.SetLineWidth(1)
	dc.Stroke()
}

// fetchImage loads an element source from HTTP(S) or the local filesystem.
func (r *rasterRenderer) fetchImage(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// scaleTo resizes img to w x h, tolerating zero target sizes by falling back
// to the source size.
func scaleTo(img image.Image, w, h int) image.Image {
	if w <= 0 {
		w = img.Bounds().Dx()
	}
	if h <= 0 {
		h = img.Bounds().Dy()
	}
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// face returns a cached TTF face at the requested size, or the built-in
// fallback when no font is configured.
func (r *rasterRenderer) face(points float64) font.Face {
	if r.opts.FontPath == "" {
		return basicfont.Face7x13
	}
	if points <= 0 {
		points = r.opts.FontPoints
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[points]; ok {
		return f
	}
	f, err := gg.LoadFontFace(r.opts.FontPath, points)
	if err != nil {
		return basicfont.Face7x13
	}
	r.faces[points] = f
	return f
}
