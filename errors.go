package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycleDetected   = errors.New("workflow: cycle detected, graph is not acyclic")
	ErrInvalidTemplate = errors.New("workflow: invalid template")
)

// CycleError is returned when scheduling stops making progress.
// Remaining lists the steps that could not be scheduled, in step order.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	if e == nil || len(e.Remaining) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: unschedulable steps %s", ErrCycleDetected.Error(), strings.Join(e.Remaining, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// TemplateError describes a broken template invariant.
// Kind is one of "coverage", "dangling_reference", "group_size", "order",
// "parallel_conflict" or "placeholder".
type TemplateError struct {
	Kind string
	Msg  string
}

func (e *TemplateError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrInvalidTemplate.Error()
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidTemplate.Error(), e.Kind, e.Msg)
}

func (e *TemplateError) Unwrap() error { return ErrInvalidTemplate }

func invalidf(kind, format string, args ...any) error {
	return &TemplateError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
