package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dotkit/pkg/manifest"
)

// buildCommand creates the build command for compiling manifests to DOT text.
func (c *CLI) buildCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build <manifest.toml>",
		Short: "Compile a TOML manifest into DOT text",
		Long: `Compile a TOML manifest into DOT text.

The build command reads a graph manifest, validates it, and writes the
serialized DOT document. Output goes to stdout unless -o is given.

Use 'render' to go directly from a manifest to an image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func (c *CLI) runBuild(input, output string) error {
	m, err := manifest.Load(input)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", input, err)
	}

	text, err := m.DOT()
	if err != nil {
		return fmt.Errorf("build %s: %w", input, err)
	}

	if output == "" {
		fmt.Print(text)
		return nil
	}

	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	nodes, edges := manifestStats(m)
	printSuccess("Built %s", filepath.Base(input))
	printFile(output)
	printStats(nodes, edges, false)
	return nil
}

// manifestStats counts declared nodes and edges, including endpoint-only
// nodes, by building the graph the manifest describes.
func manifestStats(m *manifest.Manifest) (nodes, edges int) {
	if m.Directed() {
		g, err := m.Digraph()
		if err != nil {
			return 0, 0
		}
		return g.NodeCount(), g.EdgeCount()
	}
	g, err := m.Undirected()
	if err != nil {
		return 0, 0
	}
	return g.NodeCount(), g.EdgeCount()
}

// isManifest reports whether path looks like a TOML manifest rather than raw
// DOT text.
func isManifest(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
