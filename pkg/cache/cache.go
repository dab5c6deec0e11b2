// Package cache stores rendered graph artifacts keyed by the DOT text and
// render parameters that produced them. Rendering is deterministic, so a hit
// can be served without invoking a layout engine at all.
//
// Three backends are provided: FileCache for CLI usage, RedisCache for the
// render server, and NullCache to disable caching entirely.
package cache

import (
	"context"
	"time"
)

// Cache is the artifact storage contract shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKeyOpts are the render parameters that distinguish artifacts built
// from the same DOT text.
type ArtifactKeyOpts struct {
	// Format is the output format (svg, png, ...).
	Format string
	// Engine is the layout engine (dot, neato, ...).
	Engine string
	// Embedded reports whether the embedded renderer produced the artifact
	// rather than an external graphviz binary.
	Embedded bool
}

// Keyer generates cache keys for rendered artifacts.
type Keyer interface {
	// ArtifactKey generates a key for an artifact produced from the DOT text
	// with the given hash and the given render parameters.
	ArtifactKey(dotHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer generates globally shared keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ArtifactKey generates a key of the form "artifact:<sha256>".
func (k *DefaultKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", dotHash, opts)
}
