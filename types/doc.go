// Package types contains the shared error model of the coordination core.
//
// All components surface failures as *types.Error carrying a stable
// ErrorCode, an optional cause, an HTTP status hint and a retryable flag.
// The taxonomy distinguishes caller mistakes (INVALID_REQUEST,
// DEPENDENCY_CYCLE) from recoverable execution noise (AGENT_TIMEOUT,
// AGENT_INVOCATION) and from conditions that are surfaced but never fatal
// (CONFLICT_UNRESOLVABLE, CONSENSUS_NOT_REACHED).
package types
