// Package catalog indexes every tool reachable through a dispatcher.
//
// Builtin executors and remote servers are flattened into one tool list,
// registered in a tooldiscovery index for BM25 search and documented in a
// tooldoc store. The catalog is also the manifest source used to resolve
// hashed wire names back to operation names.
//
// # Usage
//
//	cat := catalog.New(catalog.WithRemoteClient(client))
//	_ = cat.AddExecutor(notebookExecutor)
//	_, _ = cat.RefreshRemote(ctx, "github", descriptor)
//	names := cat.FunctionNames() // what the model sees
//	hits, _ := cat.Search("create document", 5)
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Errors: refresh failures leave the previous entries of a namespace in place.
package catalog
