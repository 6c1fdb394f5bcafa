package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format is an image output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported image format %q (want svg or png)", s)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer image format from %q", path)
	}
	return ParseFormat(ext)
}

// Render writes the axes to w in format f.
func (a *Axes) Render(w io.Writer, f Format) error {
	switch f {
	case FormatSVG:
		_, err := io.WriteString(w, a.SVG())
		return err
	case FormatPNG:
		return a.PNG(w)
	default:
		return fmt.Errorf("unsupported image format %q", f)
	}
}
