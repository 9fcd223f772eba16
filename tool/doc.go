// Package tool is the registration and lazy-configuration gateway shared by
// every integration.
//
// The package is split by concern:
//   - config: environment-derived settings resolved once per snapshot
//   - availability: the gate every operation passes before touching upstream state
//   - lazy: get-or-create client handles
//   - operation/result: the callable unit and its uniform envelope
//   - registry/coordinator: the dispatch table and startup registration
//   - monitor/history: availability rechecks and persisted startup outcomes
//
// Integrations live in their own packages and only depend on this one.
package tool
