// Package errs defines the structured failures surfaced by a video build.
//
// Every component returns *Error at its boundary so that the caller can tell
// what failed (Kind), why (Reason), and which panel caused it (Panel) without
// parsing messages. Nothing in the engine retries; that decision belongs to
// whoever owns the job.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies a build failure.
type Kind string

const (
	KindResolution     Kind = "resolution"
	KindGeometry       Kind = "geometry"
	KindEncoderMissing Kind = "encoder_missing"
	KindEncoderFailed  Kind = "encoder_failed"
	KindEncoderTimeout Kind = "encoder_timeout"
	KindWorkspace      Kind = "workspace"
	KindInvalidConfig  Kind = "invalid_config"
	KindCanceled       Kind = "canceled"
)

// Error implements error so that errors.Is(err, errs.KindGeometry) works.
func (k Kind) Error() string { return string(k) }

// Reason narrows a resolution failure.
type Reason string

const (
	ReasonUnreachable  Reason = "unreachable"
	ReasonDecodeFailed Reason = "decode_failed"
	ReasonNotFound     Reason = "not_found"
)

// Error is the structured failure of one build step.
type Error struct {
	Kind   Kind
	Reason Reason
	// Panel is the panel_number of the offending panel, 0 when not applicable.
	Panel int
	Op    string
	// Detail carries bounded diagnostic text, e.g. the tail of encoder stderr.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString("(" + string(e.Reason) + ")")
	}
	if e.Panel != 0 {
		fmt.Fprintf(&b, " panel %d", e.Panel)
	}
	if e.Op != "" {
		b.WriteString(": " + e.Op)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	if e.Detail != "" {
		b.WriteString("\n" + e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// New builds an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Resolution builds a resolution failure with its reason.
func Resolution(reason Reason, op string, err error) *Error {
	return &Error{Kind: KindResolution, Reason: reason, Op: op, Err: err}
}

// WithPanel attaches the panel number to err. A structured error is copied so
// that the original value stays untouched; anything else is wrapped as kind.
func WithPanel(err error, panel int, fallback Kind) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Panel = panel
		return &cp
	}
	return &Error{Kind: fallback, Panel: panel, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not structured.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the resolution Reason of err, or "".
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// PanelOf returns the offending panel number of err, or 0.
func PanelOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Panel
	}
	return 0
}

// Tail returns at most n trailing bytes of s, trimmed of surrounding space.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return "…" + s[i:]
}
