// Package visualization renders growth frames for browsers and files, and
// serves a live simulation over HTTP.
package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"strings"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/render"
)

// Format specifies the output format for frame rendering.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPNG, FormatJSON, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want svg, png, json or html)", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJSON:
		return "application/json"
	default:
		return "text/html; charset=utf-8"
	}
}

// Render writes frame in the given format. t maps simulation space onto the
// output canvas.
func Render(w io.Writer, frame growth.Frame, t render.Transform, format Format) error {
	switch format {
	case FormatSVG:
		_, err := io.WriteString(w, RenderSVG(frame, t))
		return err
	case FormatPNG:
		if err := png.Encode(w, render.Rasterize(frame, t)); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return nil
	case FormatJSON:
		return json.NewEncoder(w).Encode(frame)
	case FormatHTML:
		html, err := RenderHTML(PageData{Frame: frame, Width: t.Width, Height: t.Height, Bounds: t.Bounds})
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// RenderSVG produces a standalone SVG document of the frame: one polyline
// per strand on a black background.
func RenderSVG(frame growth.Frame, t render.Transform) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		t.Width, t.Height, t.Width, t.Height)
	b.WriteString("  <rect width=\"100%\" height=\"100%\" fill=\"black\"/>\n")
	fmt.Fprintf(&b, "  <g fill=\"none\" stroke-width=\"%.1f\" stroke-linecap=\"round\" stroke-linejoin=\"round\">\n", constants.StrandWidth)

	for _, s := range frame.Strands {
		if len(s.Points) < 2 {
			continue
		}
		b.WriteString("    <polyline points=\"")
		for i, p := range s.Points {
			if i > 0 {
				b.WriteByte(' ')
			}
			x, y := t.ToPixel(p)
			fmt.Fprintf(&b, "%.2f,%.2f", x, y)
		}
		fmt.Fprintf(&b, "\" stroke=\"rgb(%d,%d,%d)\" stroke-opacity=\"%.3f\"/>\n",
			s.Colour.R, s.Colour.G, s.Colour.B, float64(s.Colour.A)/255)
	}

	b.WriteString("  </g>\n</svg>\n")
	return b.String()
}

// PageData configures the HTML page. With an empty StreamURL the page draws
// Frame once; otherwise it follows the websocket stream and posts commands
// to APIBaseURL.
type PageData struct {
	Frame      growth.Frame
	Bounds     growth.Bounds
	Width      int
	Height     int
	APIBaseURL string
	StreamURL  string
}

// htmlTemplateData holds data passed to the HTML template.
// FrameJSON is pre-sanitized JSON (via json.HTMLEscape) safe for inline <script>.
type htmlTemplateData struct {
	Width       int
	Height      int
	StrokeWidth float64
	FrameJSON   template.JS
	BoundsJSON  template.JS
	APIBaseURL  string
	StreamURL   string
}

// RenderHTML produces an HTML page that draws frames on a canvas.
func RenderHTML(data PageData) ([]byte, error) {
	frameJSON, err := json.Marshal(data.Frame)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	boundsJSON, err := json.Marshal(data.Bounds)
	if err != nil {
		return nil, fmt.Errorf("marshal bounds: %w", err)
	}

	tmplBytes, err := templates.ReadFile("templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("index").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	// json.HTMLEscape converts <, >, & to unicode escapes so the inline
	// script cannot be closed early.
	var frameEsc, boundsEsc bytes.Buffer
	json.HTMLEscape(&frameEsc, frameJSON)
	json.HTMLEscape(&boundsEsc, boundsJSON)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, htmlTemplateData{
		Width:       data.Width,
		Height:      data.Height,
		StrokeWidth: constants.StrandWidth,
		FrameJSON:   template.JS(frameEsc.String()),  // #nosec G203
		BoundsJSON:  template.JS(boundsEsc.String()), // #nosec G203
		APIBaseURL:  data.APIBaseURL,
		StreamURL:   data.StreamURL,
	}); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
