// Package coordination drives multi-agent execution of one task: strategy
// selection (sequential, parallel, iterative, consensus), concurrent agent
// invocation with per-round timeouts, conflict resolution over disagreeing
// opinions, and weighted consensus building over bounded option sets.
//
// The Coordinator owns all Opinion and resolution artifacts for the
// duration of a single task execution and hands the finished Result back to
// the task manager.
package coordination
