// Package diag defines the diagnostic type emitted by every compiler pass
// (spec §4.6.2: "severity, span, message, suggested fix"; §7: ParseError
// and SemanticError both carry a span).
package diag

import (
	"fmt"

	"github.com/helixdb/helix-go/pkg/hql/token"
)

// Severity distinguishes a hard compile failure from an advisory note.
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

// Diagnostic is one compiler message.
type Diagnostic struct {
	Severity Severity
	Span     token.Span
	Message  string
	Fix      string
}

func (d Diagnostic) String() string {
	if d.Fix != "" {
		return fmt.Sprintf("%s: %s: %s (try: %s)", d.Span, d.Severity, d.Message, d.Fix)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(span token.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...)}
}

// ErrorWithFix builds an error-severity diagnostic carrying a suggested fix.
func ErrorWithFix(span token.Span, fix string, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...), Fix: fix}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(span token.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Span: span, Message: fmt.Sprintf(format, args...)}
}

// HasErrors reports whether any diagnostic in the slice is error-severity.
// Compilation fails on any error; warnings do not (spec §4.6.2).
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
