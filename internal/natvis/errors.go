package natvis

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBool      = errors.New("invalid boolean")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidUsage     = errors.New("invalid smart pointer usage")
	ErrMissingAttr      = errors.New("missing attribute")
	ErrDuplicate        = errors.New("duplicate element")
	ErrInvalidIntrinsic = errors.New("invalid intrinsic")
	ErrNotNatvis        = errors.New("not a natvis document")
	ErrMalformed        = errors.New("malformed document")
)

// ParseError is a document-level failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse natvis document %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EntryError is a failure confined to one `<Type>` element.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("type %q: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
