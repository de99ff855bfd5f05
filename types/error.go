package types

import "fmt"

// ErrorCode represents a unified error code across the coordination core.
type ErrorCode string

// Request validation error codes
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrDependencyCycle ErrorCode = "DEPENDENCY_CYCLE"
	ErrTaskNotFound    ErrorCode = "TASK_NOT_FOUND"
	ErrAgentNotFound   ErrorCode = "AGENT_NOT_FOUND"
	ErrResultNotReady  ErrorCode = "RESULT_NOT_READY"
	ErrNotCancellable  ErrorCode = "NOT_CANCELLABLE"
)

// Execution error codes
const (
	ErrAgentTimeout        ErrorCode = "AGENT_TIMEOUT"
	ErrAgentInvocation     ErrorCode = "AGENT_INVOCATION"
	ErrNoAgentsResponded   ErrorCode = "NO_AGENTS_RESPONDED"
	ErrDependencyFailure   ErrorCode = "DEPENDENCY_FAILURE"
	ErrBlockingOpinion     ErrorCode = "BLOCKING_OPINION"
	ErrTaskCancelled       ErrorCode = "TASK_CANCELLED"
	ErrConflictUnresolved  ErrorCode = "CONFLICT_UNRESOLVABLE"
	ErrConsensusNotReached ErrorCode = "CONSENSUS_NOT_REACHED"
)

// Infrastructure error codes
const (
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrPoolExhausted    ErrorCode = "POOL_EXHAUSTED"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	TaskID     string    `json:"task_id,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError creates an INVALID_REQUEST error.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrInvalidRequest, Message: message, HTTPStatus: 400}
}

// NewNotFoundError creates a TASK_NOT_FOUND error.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrTaskNotFound, Message: message, HTTPStatus: 404}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithTask attaches the task id the error relates to.
func (e *Error) WithTask(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// WithAgent attaches the agent id the error relates to.
func (e *Error) WithAgent(agentID string) *Error {
	e.AgentID = agentID
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
