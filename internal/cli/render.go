package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dotkit/pkg/cache"
	"github.com/matzehuels/dotkit/pkg/dot"
	"github.com/matzehuels/dotkit/pkg/manifest"
	"github.com/matzehuels/dotkit/pkg/render"
)

// defaultArtifactTTL bounds how long rendered artifacts stay cached.
const defaultArtifactTTL = 30 * 24 * time.Hour

// renderOptions collects the flags shared by render paths.
type renderOptions struct {
	output   string
	format   string
	engine   string
	dotBin   string
	embedded bool
	noCache  bool
}

// renderCommand creates the render command for producing images.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <manifest.toml|graph.gv>",
		Short: "Render a manifest or DOT file to an image",
		Long: `Render a manifest or DOT file to an image.

Inputs ending in .toml are compiled as manifests; anything else is treated
as raw DOT text. Rendering runs the installed graphviz binary by default;
--embedded switches to the built-in layout engine, which needs no external
tools but supports fewer formats (svg, png, jpg).

Artifacts are cached locally, keyed by the DOT text and render parameters,
so repeated renders of an unchanged graph skip the layout engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default input name with format extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg (default), png, jpg, ...")
	cmd.Flags().StringVarP(&opts.engine, "engine", "K", dot.DefaultEngine, "layout engine: dot, neato, fdp, ...")
	cmd.Flags().StringVar(&opts.dotBin, "dot-bin", dot.DefaultExecutable, "graphviz executable to invoke")
	cmd.Flags().BoolVar(&opts.embedded, "embedded", false, "use the embedded layout engine instead of a graphviz binary")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOptions) error {
	text, nodes, edges, err := loadDOT(input)
	if err != nil {
		return err
	}

	format := resolveFormat(opts)
	if opts.embedded && !render.Supported(format) {
		return fmt.Errorf("embedded renderer does not support format %q", format)
	}
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}

	store, err := newCache(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer store.Close()

	keyer := cache.NewDefaultKeyer()
	key := keyer.ArtifactKey(cache.Hash([]byte(text)), cache.ArtifactKeyOpts{
		Format:   format,
		Engine:   opts.engine,
		Embedded: opts.embedded,
	})

	logger := c.Logger
	if data, hit, err := store.Get(ctx, key); err == nil && hit {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		printSuccess("Rendered %s", filepath.Base(input))
		printFile(output)
		printStats(nodes, edges, true)
		return nil
	} else if err != nil {
		logger.Debug("cache lookup failed", "err", err)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", filepath.Base(input)))
	spinner.Start()
	prog := newProgress(logger)

	artifact, err := renderArtifact(ctx, text, output, format, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %s", output))

	if err := store.Set(ctx, key, artifact, defaultArtifactTTL); err != nil {
		logger.Debug("cache store failed", "err", err)
	}

	printSuccess("Rendered %s", filepath.Base(input))
	printFile(output)
	printStats(nodes, edges, false)
	return nil
}

// renderArtifact produces the image at output and returns its bytes for
// caching. The subprocess path writes the file itself; the embedded path
// renders in-process.
func renderArtifact(ctx context.Context, text, output, format string, opts renderOptions) ([]byte, error) {
	if opts.embedded {
		data, err := render.Bytes(ctx, text, format)
		if err != nil {
			return nil, fmt.Errorf("embedded render: %w", err)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", output, err)
		}
		return data, nil
	}

	err := dot.Render(text, output,
		dot.WithEngine(opts.engine),
		dot.WithFormat(format),
		dot.WithExecutable(opts.dotBin),
	)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return os.ReadFile(output)
}

// loadDOT reads the input as a manifest or raw DOT text and returns the text
// with node and edge counts when known.
func loadDOT(input string) (text string, nodes, edges int, err error) {
	if isManifest(input) {
		m, err := manifest.Load(input)
		if err != nil {
			return "", 0, 0, fmt.Errorf("load manifest %s: %w", input, err)
		}
		text, err := m.DOT()
		if err != nil {
			return "", 0, 0, fmt.Errorf("build %s: %w", input, err)
		}
		nodes, edges := manifestStats(m)
		return text, nodes, edges, nil
	}

	raw, err := os.ReadFile(input)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read %s: %w", input, err)
	}
	return string(raw), 0, 0, nil
}

// resolveFormat picks the output format from the flag, then the output file
// extension, then the svg default.
func resolveFormat(opts renderOptions) string {
	if opts.format != "" {
		return opts.format
	}
	if ext := filepath.Ext(opts.output); ext != "" {
		return strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return render.FormatSVG
}
