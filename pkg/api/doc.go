// Package api is the control plane's HTTP transport (spec §6): a chi router
// exposing the worker/lab REST surface, the SSE event stream, and the
// ambient health/metrics endpoints. It translates HTTP requests into
// mediator.Dispatch calls and mediator.OperationResult into HTTP responses,
// and owns no domain logic of its own.
//
// Re-architecture note (spec §9): the teacher exposes this surface as a
// gRPC service secured by per-node mTLS, since its clients are cluster
// members. This control plane's clients are external operators and UIs
// authenticating with a bearer token, so the transport generalizes to a
// plain REST+SSE API with token validation as an injected port instead of
// a certificate authority.
package api
