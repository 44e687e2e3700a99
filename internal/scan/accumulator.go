// Package scan implements the fact set a two-phase recipe builds while
// scanning a whole project and reads while transforming it.
package scan

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// State is the lifecycle phase of an Accumulator.
type State int

const (
	Scanning State = iota
	Transforming
	Done
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Transforming:
		return "transforming"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrWrongState is returned when an operation does not fit the current phase.
var ErrWrongState = errors.New("accumulator in wrong state")

// Accumulator collects facts keyed by K. It is safe for concurrent use by
// the scanners of many files. A key seen twice keeps its first value, so
// the outcome does not depend on which file is scanned first unless values
// for one key differ; Merge decides that case.
type Accumulator[K cmp.Ordered, V any] struct {
	mu    sync.Mutex
	state State
	facts map[K]V
	merge func(old, new V) V
}

// New returns an accumulator in the Scanning state.
func New[K cmp.Ordered, V any]() *Accumulator[K, V] {
	return &Accumulator[K, V]{facts: make(map[K]V)}
}

// WithMerge sets how a second value for an existing key is combined.
func (a *Accumulator[K, V]) WithMerge(fn func(old, new V) V) *Accumulator[K, V] {
	a.merge = fn
	return a
}

// Put records a fact. It fails once scanning has ended.
func (a *Accumulator[K, V]) Put(k K, v V) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Scanning {
		return fmt.Errorf("%w: put %v while %s", ErrWrongState, k, a.state)
	}
	if old, ok := a.facts[k]; ok {
		if a.merge != nil {
			a.facts[k] = a.merge(old, v)
		}
		return nil
	}
	a.facts[k] = v
	return nil
}

// State returns the current phase.
func (a *Accumulator[K, V]) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Freeze ends scanning and returns an immutable snapshot of the facts.
func (a *Accumulator[K, V]) Freeze() (*Snapshot[K, V], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Scanning {
		return nil, fmt.Errorf("%w: freeze while %s", ErrWrongState, a.state)
	}
	a.state = Transforming
	facts := maps.Clone(a.facts)
	keys := slices.Sorted(maps.Keys(facts))
	return &Snapshot[K, V]{facts: facts, keys: keys}, nil
}

// Close ends the transform phase and drops the facts.
func (a *Accumulator[K, V]) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Transforming {
		return fmt.Errorf("%w: close while %s", ErrWrongState, a.state)
	}
	a.state = Done
	a.facts = nil
	return nil
}

// Snapshot is the read-only view transformers consult.
type Snapshot[K cmp.Ordered, V any] struct {
	facts map[K]V
	keys  []K
}

// Empty reports whether no fact was recorded.
func (s *Snapshot[K, V]) Empty() bool { return s == nil || len(s.keys) == 0 }

// Len returns the number of distinct facts.
func (s *Snapshot[K, V]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Has reports whether k was recorded.
func (s *Snapshot[K, V]) Has(k K) bool {
	if s == nil {
		return false
	}
	_, ok := s.facts[k]
	return ok
}

// Get returns the fact recorded under k.
func (s *Snapshot[K, V]) Get(k K) (V, bool) {
	if s == nil {
		var zero V
		return zero, false
	}
	v, ok := s.facts[k]
	return v, ok
}

// Keys returns the recorded keys in sorted order.
func (s *Snapshot[K, V]) Keys() []K {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Values returns the distinct values in key order, dropping repeats as
// judged by eq.
func (s *Snapshot[K, V]) Values(eq func(a, b V) bool) []V {
	var out []V
	for _, k := range s.Keys() {
		v := s.facts[k]
		if !slices.ContainsFunc(out, func(x V) bool { return eq(x, v) }) {
			out = append(out, v)
		}
	}
	return out
}
