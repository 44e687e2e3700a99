package recipe

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file")
	ErrUnsupportedRule = errors.New("unsupported rule type")
	ErrUnknownTarget   = errors.New("scheduled visitor targets an unknown file")
	ErrIO              = errors.New("file i/o failed")
)

// RuleError records a rule that failed on one file. The file keeps the
// tree it had before the rule ran.
type RuleError struct {
	Path string
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: rule %s: %v", e.Path, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
