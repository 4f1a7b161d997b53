// Package graph provides the core flow execution engine.
package graph

// Map is the JSON-like mapping type threaded through the graph as node
// input, output and config. Node data is a sum type over string, number,
// bool, list and mapping; Go represents that sum type with `any` and this
// named map alias rather than a tagged interface, following the same
// pattern the teacher's ToolSpec.Schema and tool.Call input/output use.
type Map map[string]any

// stopped is the sentinel value an Executor's Receive may return to mean
// "this branch produces no output; do not propagate." It is an unexported
// type so that only this package's Stopped value can ever satisfy IsStopped,
// the same way the teacher reserves contextKey as a private type to avoid
// collisions with values from other packages.
type stopped struct{}

// Stopped is the sentinel output meaning the current branch is suppressed.
var Stopped any = stopped{}

// IsStopped reports whether v is the Stopped sentinel.
func IsStopped(v any) bool {
	_, ok := v.(stopped)
	return ok
}

// shallowCopy returns a value safe to hand to a node without letting the
// node's mutations poison the caller's original. Maps get a shallow key
// copy; everything else (primitives, slices passed by the caller) is
// returned unchanged, matching the Python original's `.copy()` semantics.
func shallowCopy(v any) any {
	m, ok := v.(Map)
	if !ok {
		return v
	}
	out := make(Map, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

// deepCopyConfig clones a node's config mapping one level deep, which is
// sufficient because config values are JSON-like leaves or nested maps that
// are themselves replaced wholesale by callers rather than mutated in place.
func deepCopyConfig(cfg Map) Map {
	out := make(Map, len(cfg)+2)
	for k, v := range cfg {
		if nested, ok := v.(Map); ok {
			out[k] = shallowCopy(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// mergeOutputs implements the fan-in merge rule of the flow runner: mapping
// parents merge left-to-right with last-writer-wins key precedence; a
// non-mapping parent output replaces the whole accumulator outright.
func mergeOutputs(outputs []any) any {
	var acc any = Map{}
	for _, o := range outputs {
		m, ok := o.(Map)
		if !ok {
			acc = o
			continue
		}
		accMap, isMap := acc.(Map)
		if !isMap {
			accMap = Map{}
		}
		merged := make(Map, len(accMap)+len(m))
		for k, v := range accMap {
			merged[k] = v
		}
		for k, v := range m {
			merged[k] = v
		}
		acc = merged
	}
	return acc
}

// stringSlice extracts a []string from a value that may have arrived as
// []string, []any (the common shape after JSON decoding) or be absent.
func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
