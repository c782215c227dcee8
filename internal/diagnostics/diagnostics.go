// Package diagnostics defines the structured errors produced by the type
// checker. Every problem found during constraint generation or solving
// becomes a DiagnosticError; nothing in the engine prints or panics.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marlow-lang/marlow/internal/token"
)

// ErrorCode identifies the diagnostic category.
type ErrorCode string

const (
	ErrT001 ErrorCode = "T001" // Undefined symbol
	ErrT002 ErrorCode = "T002" // Unsupported construct
	ErrT003 ErrorCode = "T003" // Unsatisfiable type constraints
	ErrT004 ErrorCode = "T004" // Ambiguous type
	ErrT005 ErrorCode = "T005" // Ambiguous call
)

var messages = map[ErrorCode]string{
	ErrT001: "undefined symbol",
	ErrT002: "unsupported construct",
	ErrT003: "unsatisfiable type constraints",
	ErrT004: "ambiguous type",
	ErrT005: "ambiguous call",
}

// Severity distinguishes hard errors from advisory reports.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagnosticError is one located problem report.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Token    token.Token
	File     string
	Message  string
}

// NewError builds a diagnostic from a code and its detail arguments.
// Details are appended to the code's base message.
func NewError(code ErrorCode, tok token.Token, args ...string) *DiagnosticError {
	msg := messages[code]
	if len(args) > 0 {
		msg += ": " + strings.Join(args, ", ")
	}
	return &DiagnosticError{
		Code:     code,
		Severity: SeverityError,
		Token:    tok,
		Message:  msg,
	}
}

// NewWarning builds an advisory diagnostic.
func NewWarning(code ErrorCode, tok token.Token, args ...string) *DiagnosticError {
	d := NewError(code, tok, args...)
	d.Severity = SeverityWarning
	return d
}

func (e *DiagnosticError) Error() string {
	loc := e.Token.Pos()
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	return fmt.Sprintf("%s: %s [%s]", loc, e.Message, e.Code)
}

// Sort orders diagnostics by file, position, code and message. Callers that
// aggregate reports from concurrently checked procedures sort before
// presenting so output never depends on scheduling.
func Sort(diags []*DiagnosticError) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Token != b.Token {
			return a.Token.Before(b.Token)
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}
