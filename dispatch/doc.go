// Package dispatch runs tool calls end to end.
//
// A Dispatcher resolves each Call to either an in-process executor or a
// configured remote server, runs it, and applies the outcome:
//
//   - success: content goes to the conversation message, state goes to the
//     side channel under the call id
//   - failure: the *toolerr.Error goes to the side channel under the call id;
//     message content is left untouched
//   - cancellation: nothing is written except the settled loading flag
//
// Every call moves through Pending, Running and exactly one terminal phase.
// The loading flag set on entering Running is cleared on every exit path.
// Calls for an unknown namespace fail with ApiNotFound before anything is
// written.
//
// # Concurrency
//
// Dispatch is safe for concurrent use. Side-channel entries are keyed by
// call id, so concurrent calls never overwrite each other. DispatchAll runs
// a batch concurrently and applies results in completion order.
package dispatch
