package dot

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// Defaults for [Render]. The executable is resolved via the process search
// path unless an explicit path is supplied with [WithExecutable].
const (
	DefaultEngine     = "dot" // hierarchical layout
	DefaultFormat     = "png" // used when the destination has no extension
	DefaultExecutable = "dot"
)

type renderConfig struct {
	engine     string
	format     string
	executable string
}

// RenderOption configures a [Render] call.
type RenderOption func(*renderConfig)

// WithEngine selects the layout engine (e.g. "dot", "neato", "fdp").
func WithEngine(engine string) RenderOption {
	return func(c *renderConfig) { c.engine = engine }
}

// WithFormat sets the output format explicitly instead of inferring it from
// the destination extension.
func WithFormat(format string) RenderOption {
	return func(c *renderConfig) { c.format = format }
}

// WithExecutable sets the layout executable name or path.
func WithExecutable(path string) RenderOption {
	return func(c *renderConfig) { c.executable = path }
}

// Render pipes the serialized DOT text src into the layout executable and
// writes the rendered image to path. The format defaults to the destination
// extension, falling back to [DefaultFormat] when the path has none.
//
// The invocation is a single synchronous subprocess call with no timeout or
// retry. Launch failures (executable missing or not runnable) are returned
// unmodified; a non-zero exit is reported as a [*RenderError] carrying the
// exit code and captured stderr. On failure, no guarantee is made about
// partial contents of the output file.
func Render(src, path string, opts ...RenderOption) error {
	cfg := renderConfig{engine: DefaultEngine, executable: DefaultExecutable}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, file := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	out := filepath.Join(dir, file)

	format := cfg.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(file), ".")
	}
	if format == "" {
		format = DefaultFormat
	}

	cmd := exec.Command(cfg.executable, "-K"+cfg.engine, "-o"+out, "-T"+format, "-q")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return err
	}

	// Feed the document and close the pipe so the process sees EOF. A write
	// failure (process exited early) is diagnosed by Wait below.
	_, werr := io.WriteString(stdin, src)
	cerr := stdin.Close()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &RenderError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return err
	}
	if werr != nil {
		return werr
	}
	return cerr
}

// Render serializes the graph and renders it to path using the subprocess
// adapter. See the package-level [Render] for option and error semantics.
func (g *Graph[E]) Render(path string, opts ...RenderOption) error {
	return Render(g.String(), path, opts...)
}
