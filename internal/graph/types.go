package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ResolutionKind tells how a referenced name was bound to a definition.
type ResolutionKind string

const (
	ResolvedPreceding ResolutionKind = "preceding"
	ResolvedForward   ResolutionKind = "forward"
)

// ErrCycle is returned by Sort when definitions depend on each other.
var ErrCycle = errors.New("dependency cycle")

// CycleError lists the nodes left unordered by Sort.
type CycleError struct {
	Names []string
	Nodes []int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s between %s", ErrCycle, strings.Join(e.Names, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}
