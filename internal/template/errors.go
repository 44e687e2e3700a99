package template

import (
	"errors"
	"fmt"

	"github.com/oxhq/quarkmig/internal/tree"
)

// ErrSynthesis marks every template failure.
var ErrSynthesis = errors.New("synthesis failed")

// Reasons wrapped by SynthesisError.
var (
	ErrParse          = errors.New("fragment does not parse in context")
	ErrBindingCount   = errors.New("wrong number of bindings")
	ErrBindingType    = errors.New("binding does not fit placeholder type")
	ErrBadPlaceholder = errors.New("malformed placeholder")
	ErrBadCoordinate  = errors.New("coordinate does not fit target")
)

// SynthesisError reports a template that could not be applied at a node.
// The target node is left as it was.
type SynthesisError struct {
	Rule     string
	NodeID   tree.ID
	Fragment string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize %q for %s at node %d: %v", e.Fragment, e.Rule, e.NodeID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesis }
