package graph

import (
	"time"

	"github.com/flowrunner/flowrunner/graph/emit"
)

// engineConfig holds everything an Option can set, mirroring the teacher's
// functional-options engine config: a private struct built up by Option
// values and consulted only by New.
type engineConfig struct {
	emitter     emit.Emitter
	metrics     *Metrics
	maxNodeRuns int
	debugMode   bool
	nodeTimeout time.Duration
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		emitter:     emit.NewNullEmitter(),
		maxNodeRuns: 1000,
		nodeTimeout: 0,
	}
}

// Option configures an Engine at construction time, following the
// teacher's functional-options idiom (graph/options.go's Option type).
type Option func(*engineConfig) error

// WithEmitter sets the Emitter the engine reports node/run events to.
func WithEmitter(e emit.Emitter) Option {
	return func(c *engineConfig) error {
		c.emitter = e
		return nil
	}
}

// WithMetrics attaches a Metrics recorder (see metrics.go). Nil disables
// metrics recording, which is also the default.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) error {
		c.metrics = m
		return nil
	}
}

// WithMaxNodeRuns overrides MAX_NODE_RUNS (default 1000), the per-node
// re-execution cap original_source uses to bound cyclic flows.
func WithMaxNodeRuns(n int) Option {
	return func(c *engineConfig) error {
		if n <= 0 {
			return &RunError{Reason: ErrMaxRunsExceeded}
		}
		c.maxNodeRuns = n
		return nil
	}
}

// WithDebugMode toggles verbose per-node event emission, mirroring
// original_source's `settings.get("debug_mode")` check.
func WithDebugMode(enabled bool) Option {
	return func(c *engineConfig) error {
		c.debugMode = enabled
		return nil
	}
}

// WithNodeTimeout bounds each individual node invocation with a context
// deadline. Zero (the default) means no per-node deadline, matching
// original_source, which never times out a node on its own.
func WithNodeTimeout(d time.Duration) Option {
	return func(c *engineConfig) error {
		c.nodeTimeout = d
		return nil
	}
}
