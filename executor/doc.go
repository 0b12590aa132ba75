// Package executor defines the contract every in-process tool family
// implements, and the registry that maps a namespace to its executor.
//
// An executor owns a closed set of operations under one identifier. The
// operation table is fixed at construction: [NewBase] refuses to build an
// executor whose declared operations and bound methods diverge, so a missing
// method is a startup failure rather than a runtime surprise.
//
// # Invocation
//
// [Base.Invoke] is the only way into an operation. It never returns a Go
// error; every outcome is a [Result]:
//
//   - unknown operation: Success=false, Error.Kind=ApiNotFound
//   - declared but unbound operation: Error.Kind=MethodNotImplemented
//   - method error or panic: Error.Kind=PluginServerError, Body=original
//   - context already cancelled: Stop=true, no error
//
// # Typed parameters
//
// [Bind] adapts a typed method to the untyped [Method] signature, decoding
// the argument map with mapstructure using the params struct's json tags:
//
//	type createParams struct {
//	    Title string `json:"title"`
//	}
//
//	methods := map[string]executor.Method{
//	    "create": executor.Bind(func(ctx context.Context, p createParams, cc executor.Context) (executor.Result, error) {
//	        return executor.OK("created "+p.Title, nil), nil
//	    }),
//	}
//
// # Registry
//
// [Registry] holds exactly one executor per identifier for the life of the
// process. Registering a second executor under the same identifier fails
// with [ErrExecutorExists].
package executor
