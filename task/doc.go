// Package task owns the task lifecycle: creation and validation, dependency
// gating, priority scheduling, status transitions, result storage and
// analytics. All status transitions go through the Manager; nothing else in
// the module mutates a task.
package task
