// Package qr wraps QR encoding behind the options the pipeline exposes to
// callers. The payload is either a bare fingerprint or a verification URL;
// deciding which is the caller's job, never the encoder's.
package qr

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	dErrors "certpass/pkg/domain-errors"
)

// Level is the QR error-correction level, trading density for resilience.
type Level string

const (
	LevelLow     Level = "L"
	LevelMedium  Level = "M"
	LevelQuarter Level = "Q"
	LevelHigh    Level = "H"
)

// Options parameterize one encode call. Zero values fall back to a 256px
// black-on-white code at level M.
type Options struct {
	Size       int    `json:"size,omitempty"`
	Foreground string `json:"foregroundColor,omitempty"`
	Background string `json:"backgroundColor,omitempty"`
	Level      Level  `json:"errorCorrectionLevel,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 256
	}
	if o.Foreground == "" {
		o.Foreground = "#000000"
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	if o.Level == "" {
		o.Level = LevelMedium
	}
	return o
}

// Encoder produces PNG QR codes. It is stateless and safe for concurrent use.
type Encoder struct{}

func New() *Encoder {
	return &Encoder{}
}

// Encode renders payload as a PNG. A payload the chosen version/ECC
// combination cannot represent is an error, never a truncation.
func (e *Encoder) Encode(payload string, opts Options) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "qr payload is empty")
	}
	opts = opts.withDefaults()

	level, err := recoveryLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	fg, err := parseHexColor(opts.Foreground)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid foreground color")
	}
	bg, err := parseHexColor(opts.Background)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid background color")
	}

	code, err := qrcode.New(payload, level)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "payload not encodable at this error-correction level")
	}
	code.ForegroundColor = fg
	code.BackgroundColor = bg

	png, err := code.PNG(opts.Size)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "render qr png")
	}
	return png, nil
}

// DataURI wraps PNG bytes for clients that embed the code inline.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func recoveryLevel(l Level) (qrcode.RecoveryLevel, error) {
	switch Level(strings.ToUpper(string(l))) {
	case LevelLow:
		return qrcode.Low, nil
	case LevelMedium:
		return qrcode.Medium, nil
	case LevelQuarter:
		return qrcode.High, nil
	case LevelHigh:
		return qrcode.Highest, nil
	default:
		return 0, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown error-correction level %q", l))
	}
}

// parseHexColor accepts #rgb and #rrggbb.
func parseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parse color %q: %w", s, err)
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parse color %q: %w", s, err)
		}
	default:
		return nil, fmt.Errorf("color %q is not #rgb or #rrggbb", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
