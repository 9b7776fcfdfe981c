package core

import (
	"fmt"
	"strings"
)

// Kind classifies domain failures so transports can map them to status codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// FieldIssue is a single failed field constraint.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified domain error. Use errors.Is against ErrValidation,
// ErrNotFound or ErrConflict to test the kind.
type Error struct {
	Kind    Kind
	Message string
	Issues  []FieldIssue
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches kind sentinels regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
)

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError joins every issue into one error. It returns nil when
// issues is empty so callers can return it directly.
func NewValidationError(issues []FieldIssue) error {
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Message
	}
	return &Error{Kind: KindValidation, Message: strings.Join(msgs, "; "), Issues: issues}
}

func validationf(field, format string, args ...any) error {
	return NewValidationError([]FieldIssue{{Field: field, Message: fmt.Sprintf(format, args...)}})
}
