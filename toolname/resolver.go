package toolname

import (
	"log/slog"
	"sync"
)

// ManifestSource returns the known operation names for a namespace.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: the returned slice is read-only to the caller.
type ManifestSource interface {
	Manifest(namespace string) []string
}

// ManifestFunc adapts a function to ManifestSource.
type ManifestFunc func(namespace string) []string

// Manifest implements ManifestSource.
func (f ManifestFunc) Manifest(namespace string) []string {
	return f(namespace)
}

// StaticManifests is a fixed namespace -> operations table.
type StaticManifests map[string][]string

// Manifest implements ManifestSource.
func (m StaticManifests) Manifest(namespace string) []string {
	return m[namespace]
}

// Resolver parses wire names and resolves hashed operations against a
// ManifestSource. Unresolved hashes are passed through and logged once per
// distinct name.
type Resolver struct {
	Manifests ManifestSource
	Logger    *slog.Logger

	warned sync.Map
}

// Resolve decodes name. ok is false when name is not a wire name or when its
// operation is a hash that no manifest entry matches.
func (r *Resolver) Resolve(name string) (parts Parts, ok bool) {
	parts, parsed := Parse(name)
	if !parsed {
		return Parts{Operation: name, Variant: DefaultVariant}, false
	}

	var manifest []string
	if r.Manifests != nil {
		manifest = r.Manifests.Manifest(parts.Namespace)
	}

	operation, resolved := Decode(parts.Operation, manifest)
	parts.Operation = operation
	if !resolved {
		r.warnUnresolved(name, parts.Namespace, len(manifest))
	}
	return parts, resolved
}

func (r *Resolver) warnUnresolved(name, namespace string, manifestSize int) {
	if r.Logger == nil {
		return
	}
	if _, seen := r.warned.LoadOrStore(name, struct{}{}); seen {
		return
	}
	r.Logger.Warn("unresolved hashed tool name",
		"name", name,
		"namespace", namespace,
		"manifest_size", manifestSize,
	)
}
