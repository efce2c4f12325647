// Package services holds the workflow administration logic shared by the HTTP API and the CLI.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrInvalidWorkflow = errors.New("invalid workflow")
)

// Problem is one reason a workflow was rejected.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a workflow.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", problem.Field, problem.Message))
	}

	return "invalid workflow: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidWorkflow
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}

	return e
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWorkflow) || errors.Is(err, ErrWorkflowNil)
}
