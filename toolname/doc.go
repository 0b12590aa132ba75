// Package toolname encodes and decodes the function names that upstream model
// APIs see for every tool call.
//
// A wire name joins a namespace, an operation and an optional variant with
// [Separator]:
//
//	notebook____createDocument
//	search____query____markdown
//
// Model APIs reject function names of 64 characters or more. When the plain
// form would reach that limit, the operation segment is replaced by
// [HashPrefix] followed by [ShortHash] of the operation. The hash is not
// reversible on its own; [Decode] recovers the operation by hashing every
// entry of a manifest (the operation names known for that namespace) and
// comparing digests.
//
// Nothing in this package returns an error. Names that cannot be resolved are
// passed through and reported as unresolved so callers can decide how much to
// trust them. [Resolver] logs every such pass-through.
package toolname
