// Package render renders DOT text in-process using the embedded Graphviz
// from goccy/go-graphviz. It needs no external binary, which makes it the
// right choice for the HTTP server and for hosts without Graphviz installed.
//
// The subprocess adapter in pkg/dot remains the default path for the CLI:
// the native toolchain supports every layout engine and output format, while
// the embedded engine covers SVG, PNG, and JPEG.
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// Formats supported by the embedded engine.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatJPG = "jpg"
)

// Bytes renders DOT text to image bytes in the given format.
// Returns an error for DOT syntax errors or unsupported formats.
func Bytes(ctx context.Context, dot string, format string) ([]byte, error) {
	gvFormat, err := toFormat(format)
	if err != nil {
		return nil, err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// SVG renders DOT text to SVG bytes.
func SVG(ctx context.Context, dot string) ([]byte, error) {
	return Bytes(ctx, dot, FormatSVG)
}

// PNG renders DOT text to PNG bytes.
func PNG(ctx context.Context, dot string) ([]byte, error) {
	return Bytes(ctx, dot, FormatPNG)
}

// File renders DOT text and writes the image to path in the given format.
func File(ctx context.Context, dot string, path string, format string) error {
	gvFormat, err := toFormat(format)
	if err != nil {
		return err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if err := gv.RenderFilename(ctx, g, gvFormat, path); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

// Supported reports whether the embedded engine can produce the format.
func Supported(format string) bool {
	_, err := toFormat(format)
	return err == nil
}

func toFormat(format string) (graphviz.Format, error) {
	switch format {
	case FormatSVG:
		return graphviz.SVG, nil
	case FormatPNG:
		return graphviz.PNG, nil
	case FormatJPG, "jpeg":
		return graphviz.JPG, nil
	default:
		return "", fmt.Errorf("unsupported embedded format: %s", format)
	}
}
