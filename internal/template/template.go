// Package template models the positioned elements of a certificate layout and
// the placeholder substitution applied per recipient. It knows nothing about
// hashing or rasterization; the renderer consumes the resolved elements.
package template

import (
	"fmt"

	dErrors "certpass/pkg/domain-errors"
)

// Kind discriminates element variants.
type Kind string

const (
	KindText   Kind = "text"
	KindQRCode Kind = "qrCode"
	KindImage  Kind = "image"
	KindShape  Kind = "shape"
)

// TextProps carries text-kind properties. Content may contain {{placeholder}}
// tokens resolved at render time.
type TextProps struct {
	Content string  `json:"content"`
	Color   string  `json:"color,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Align   string  `json:"align,omitempty"` // left|center|right
}

// QRProps carries qrCode-kind properties. Data is usually "{{hash}}"; the
// element receives the pre-rendered code image, never an encoder.
type QRProps struct {
	Data string `json:"data,omitempty"`
}

// ImageProps carries image-kind properties. Source is a URL or file path; a
// broken source degrades to a placeholder box at render time.
type ImageProps struct {
	Source string `json:"source"`
}

// ShapeProps carries shape-kind properties.
type ShapeProps struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Element is a tagged union: Kind selects which props pointer is set. Extra is
// a forward-compatibility escape hatch for properties this service does not
// interpret.
type Element struct {
	ID       string  `json:"id,omitempty"`
	Kind     Kind    `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"` // degrees, clockwise
	Hidden   bool    `json:"hidden,omitempty"`

	Text  *TextProps  `json:"text,omitempty"`
	QR    *QRProps    `json:"qrCode,omitempty"`
	Image *ImageProps `json:"image,omitempty"`
	Shape *ShapeProps `json:"shape,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Template is an ordered collection of elements over an optional background.
// Element order is paint order.
type Template struct {
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Background      string    `json:"background,omitempty"` // hex color
	BackgroundImage string    `json:"backgroundImage,omitempty"`
	Elements        []Element `json:"elements"`
}

// Validate rejects templates the renderer cannot lay out. Unknown element
// kinds are an error here rather than a silent skip so authoring mistakes
// surface at submission time.
func (t *Template) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "template dimensions must be positive")
	}
	for i, el := range t.Elements {
		switch el.Kind {
		case KindText:
			if el.Text == nil {
				return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("element %d: text props missing", i))
			}
		case KindQRCode, KindShape:
			// props optional; zero values render fine
		case KindImage:
			if el.Image == nil {
				return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("element %d: image props missing", i))
			}
		default:
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("element %d: unknown kind %q", i, el.Kind))
		}
		if el.Width < 0 || el.Height < 0 {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("element %d: negative size", i))
		}
	}
	return nil
}
