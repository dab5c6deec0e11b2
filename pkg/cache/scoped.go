package cache

// ScopedKeyer wraps a Keyer with a prefix so separate deployments or tenants
// of the render server get isolated namespaces in a shared backend.
//
// Example usage:
//
//	// Per-project keys on a shared redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "proj:billing:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every generated key.
// A nil inner keyer defaults to the standard one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(dotHash, opts)
}
