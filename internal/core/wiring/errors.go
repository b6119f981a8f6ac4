package wiring

import (
	"errors"
	"fmt"
	"strings"
)

// Rule sentinels. Every resolution failure unwraps to exactly one of these.
var (
	ErrFlowNotFound        = errors.New("referenced flow does not exist")
	ErrContextMismatch     = errors.New("trigger not valid for flow context")
	ErrConflictingBinding  = errors.New("conflicting binding")
	ErrComponentNotFound   = errors.New("component not found")
	ErrBindingNotFound     = errors.New("no matching event binding")
	ErrEndpointNotFound    = errors.New("endpoint not found")
	ErrNotLinkedBack       = errors.New("endpoint not linked back to flow")
	ErrMountTargetNotFound = errors.New("mount target not found")
	ErrEmptyCron           = errors.New("schedule cron is empty")
	ErrUnknownTrigger      = errors.New("unknown trigger kind")
)

// Error is a fatal wiring failure naming the offending flow or binding and
// the rule it broke.
type Error struct {
	Rule    error
	FlowID  string
	Binding string
	Detail  string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("wiring: ")
	if e.FlowID != "" {
		fmt.Fprintf(&b, "flow %q: ", e.FlowID)
	}
	if e.Binding != "" {
		fmt.Fprintf(&b, "binding %q: ", e.Binding)
	}
	b.WriteString(e.Rule.Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Rule
}

func flowError(rule error, flowID, format string, args ...any) *Error {
	return &Error{Rule: rule, FlowID: flowID, Detail: fmt.Sprintf(format, args...)}
}

func bindingError(rule error, binding, flowID, format string, args ...any) *Error {
	return &Error{Rule: rule, Binding: binding, FlowID: flowID, Detail: fmt.Sprintf(format, args...)}
}
