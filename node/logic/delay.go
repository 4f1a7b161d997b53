package logic

import (
	"context"
	"time"

	"github.com/flowrunner/flowrunner/graph"
)

// DelayExecutor sleeps config["seconds"] (default 1, negative clamped to
// zero) before passing its input through unchanged, grounded on
// original_source's DelayExecutor. Unlike the Python original's bare
// asyncio.sleep, it honors context cancellation so a cancelled run doesn't
// block past the engine's own deadlines.
type DelayExecutor struct{}

func NewDelayExecutor() graph.Executor { return DelayExecutor{} }

func (DelayExecutor) Receive(ctx context.Context, input any, config graph.Map) (any, error) {
	if input == nil {
		return graph.Stopped, nil
	}
	seconds := 1.0
	if v, ok := config["seconds"]; ok {
		switch n := v.(type) {
		case float64:
			seconds = n
		case int:
			seconds = float64(n)
		}
	}
	if seconds < 0 {
		seconds = 0
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return input, nil
}

func (DelayExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
