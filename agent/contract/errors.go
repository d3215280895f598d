package contract

import "errors"

var (
	// ErrNotFound covers absent conversations, templates, and artifacts, and
	// owner mismatches. Wrong owner is indistinguishable from absent.
	ErrNotFound = errors.New("not found")

	// ErrTool is an irrecoverable tool layer failure.
	ErrTool = errors.New("tool execution failed")

	// ErrProvider is a generative-call transport or quota failure.
	ErrProvider = errors.New("provider call failed")

	// ErrAssembly is a malformed Field Map or Row Set at assembly time.
	ErrAssembly = errors.New("document assembly failed")

	// ErrLimitExceeded means the per-turn tool-call bound was hit.
	ErrLimitExceeded = errors.New("tool call limit exceeded")

	ErrValidation      = errors.New("validation failed")
	ErrSchemaViolation = errors.New("model response violates schema")
)
