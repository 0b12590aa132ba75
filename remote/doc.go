// Package remote talks to external MCP tool servers.
//
// A server is described by a Descriptor, a closed union of StdioDescriptor
// (a child process speaking over its pipes) and HTTPDescriptor (a streamable
// HTTP endpoint with optional authentication). Descriptors are values: two
// descriptors that differ in any field address different servers.
//
// Every Client operation independently validates the descriptor, connects,
// performs one request and closes the session. No session is reused across
// calls.
//
// # Host capabilities
//
// Child-process transports are only available when the host declares it can
// spawn processes (Capabilities.Subprocess). Otherwise every stdio descriptor
// fails with toolerr.KindTransportUnsupported before any transport is built.
//
// # Errors
//
// All failures are *toolerr.Error values:
//
//   - KindTransportUnsupported: invalid or disallowed descriptor, missing credentials
//   - KindTransportError: connect, spawn or protocol failure, per-call timeout
//   - KindCancelled: the caller's context was cancelled
//
// A tool result flagged as an error is returned as a CallResult with IsError
// set; CallResult.Err converts it to KindRemoteToolError.
package remote
