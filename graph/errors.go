package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks, grounded on store.ErrNotFound's
// one-sentinel-per-failure-mode style.
var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrStartNodeNotFound = errors.New("start node not found in flow")
	ErrNodeNotFound      = errors.New("node not found")
	ErrMaxRunsExceeded   = errors.New("node exceeded max execution limit")
)

// RunError is returned when a Flow fails to start at all — an undefined
// flow id or a start node id that isn't part of the flow. It is returned
// before any node has executed, distinct from a NodeError, which happens
// mid-run and is instead captured in the run's result Map per spec.md
// §4.E.2 step 6 and §7.
type RunError struct {
	FlowID string
	Reason error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("flow %q: %v", e.FlowID, e.Reason)
}

func (e *RunError) Unwrap() error {
	return e.Reason
}

// NodeError wraps a failure raised by an Executor's Receive or Send,
// recording which node produced it. The Flow Runner treats any NodeError
// as fatal to the whole run (spec.md §7: fatal-on-error policy) and
// captures its message in the run result rather than discarding the run
// outright, so that Run still returns a usable {error: ...} Map alongside
// a non-nil Go error the caller can inspect with errors.As.
type NodeError struct {
	FlowID string
	NodeID string
	Name   string
	Cause  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("execution failed at node '%s': %v", e.Name, e.Cause)
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}
