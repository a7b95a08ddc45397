// Package errz defines the structured errors reported while loading and
// executing toi programs.
package errz

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// StackFrame identifies one active function at the time of an error.
type StackFrame struct {
	Function string
	IP       int
}

// String returns a formatted string representation of the stack frame.
func (f StackFrame) String() string {
	return fmt.Sprintf("at %s (ip %d)", f.Function, f.IP)
}

// FormatStackTrace formats a slice of stack frames as a human-readable string.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for _, frame := range frames {
		b.WriteString("  ")
		b.WriteString(frame.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Error is a structured error with enough context to diagnose the program
// that caused it. Runtime errors set Function, IP and Opcode; load errors set
// Line.
type Error struct {
	Kind     Kind
	Message  string
	Function string
	IP       int // offset of the failing opcode, -1 when not applicable
	Opcode   string
	Line     int // 1-based line of the program text, 0 when not applicable
	Stack    []StackFrame
	Cause    error
}

// New creates an Error that is not tied to an instruction.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		IP:      -1,
	}
}

// AtLine creates a load error for the given 1-based line.
func AtLine(kind Kind, line int, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Line = line
	return e
}

// AtInstruction creates an error raised while executing or decoding the
// instruction at ip of the named function.
func AtInstruction(kind Kind, function string, ip int, opcode string, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Function = function
	e.IP = ip
	e.Opcode = opcode
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	switch {
	case e.Line > 0:
		fmt.Fprintf(&b, " (line %d)", e.Line)
	case e.IP >= 0 && e.Opcode != "":
		fmt.Fprintf(&b, " (%s at %s:%d)", e.Opcode, e.Function, e.IP)
	case e.IP >= 0:
		fmt.Fprintf(&b, " (at %s:%d)", e.Function, e.IP)
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches a Kind target against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// WithCause wraps the error with a cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// PushFrame records a caller frame as the error unwinds through it.
func (e *Error) PushFrame(function string, ip int) *Error {
	e.Stack = append(e.Stack, StackFrame{Function: function, IP: ip})
	return e
}

// FriendlyErrorMessage returns the error with its code and stack trace.
func (e *Error) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	code := e.Kind.Code()
	msg.WriteString(fmt.Sprintf("[%s] %s error: %s\n", code, code.Category(), e.Error()))
	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return msg.String()
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
