// Package agent defines the agent capability boundary of the coordination
// core: the Evaluator interface every agent black box implements, the
// Opinion/Evaluation/Vote types agents produce, and the in-memory Registry
// that maps agent ids to capabilities, priority rank and invocation handle.
package agent
