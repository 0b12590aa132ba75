// Package content converts remote tool result blocks into durable form.
//
// Text blocks pass through untouched. Binary blocks (images, audio) are
// persisted through a Storage collaborator and replaced with a reference to
// the stored artifact. A block that fails to persist becomes an inline error
// block; the remaining blocks are still processed.
//
// # Usage
//
//	n := content.NewNormalizer(store)
//	blocks := n.Normalize(ctx, content.FromMCP(result.Content))
//	text := content.ToString(blocks, "https://files.example.com")
package content
