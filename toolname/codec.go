package toolname

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// Separator joins the segments of a wire name.
	Separator = "____"

	// HashPrefix marks an operation segment that was replaced by its digest.
	HashPrefix = "XXH_"

	// MaxLength is the exclusive upper bound on wire name length.
	MaxLength = 64

	// MaxNamespaceLength is the longest namespace whose hashed wire names,
	// without a variant, still stay below MaxLength.
	MaxNamespaceLength = MaxLength - 1 - len(Separator) - len(HashPrefix) - HashWidth

	// DefaultVariant is never written into a wire name.
	DefaultVariant = "default"

	// HashWidth is the number of hex characters produced by ShortHash.
	HashWidth = 16
)

// Parts is a decoded wire name.
type Parts struct {
	Namespace string
	Operation string
	Variant   string
}

// ShortHash returns the fixed-width digest used for long operation names.
// It is xxhash64 rendered as 16 lower-case hex characters, so the same
// operation hashes identically across processes and restarts.
func ShortHash(s string) string {
	return fmt.Sprintf("%0*x", HashWidth, xxhash.Sum64String(s))
}

// Encode builds the wire name for namespace, operation and variant.
// An empty or "default" variant is omitted.
//
// The operation is replaced by its digest when the plain name would reach
// MaxLength, or when the operation contains Separator or starts with
// HashPrefix and so could not be parsed back. The length bound holds only
// for namespaces up to MaxNamespaceLength.
func Encode(namespace, operation, variant string) string {
	suffix := ""
	if variant != "" && variant != DefaultVariant {
		suffix = Separator + variant
	}

	name := namespace + Separator + operation + suffix
	if len(name) < MaxLength && !ambiguous(operation) {
		return name
	}
	return namespace + Separator + HashPrefix + ShortHash(operation) + suffix
}

func ambiguous(operation string) bool {
	return strings.Contains(operation, Separator) || strings.HasPrefix(operation, HashPrefix)
}

// IsHashed reports whether an operation segment carries a digest.
func IsHashed(operation string) bool {
	return strings.HasPrefix(operation, HashPrefix)
}

// Decode recovers the logical operation name from a wire name or from a bare
// operation segment.
//
// Segments that were never hashed are returned as-is with ok=true. A hashed
// segment is looked up in manifest; without a manifest, or without a match,
// the hashed segment is returned unchanged with ok=false.
func Decode(name string, manifest []string) (operation string, ok bool) {
	operation = name
	if parts, parsed := Parse(name); parsed {
		operation = parts.Operation
	}
	if !IsHashed(operation) {
		return operation, true
	}
	if len(manifest) == 0 {
		return operation, false
	}

	digest := strings.TrimPrefix(operation, HashPrefix)
	for _, candidate := range manifest {
		if ShortHash(candidate) == digest {
			return candidate, true
		}
	}
	return operation, false
}

// Parse splits a wire name into its segments without resolving hashes.
// It returns false when name has no separator.
func Parse(name string) (Parts, bool) {
	segments := strings.SplitN(name, Separator, 3)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Parts{}, false
	}

	parts := Parts{
		Namespace: segments[0],
		Operation: segments[1],
		Variant:   DefaultVariant,
	}
	if len(segments) == 3 && segments[2] != "" {
		parts.Variant = segments[2]
	}
	return parts, true
}
