package graph

import "testing"

func TestIsStopped(t *testing.T) {
	if !IsStopped(Stopped) {
		t.Fatal("expected Stopped to satisfy IsStopped")
	}
	if IsStopped(Map{}) {
		t.Fatal("did not expect an empty Map to satisfy IsStopped")
	}
	if IsStopped(nil) {
		t.Fatal("did not expect nil to satisfy IsStopped")
	}
}

func TestMergeOutputsLeftToRightOverwrite(t *testing.T) {
	got := mergeOutputs([]any{
		Map{"a": 1, "b": 1},
		Map{"b": 2, "c": 3},
	})
	want := Map{"a": 1, "b": 2, "c": 3}
	gotMap, ok := got.(Map)
	if !ok {
		t.Fatalf("expected Map result, got %T", got)
	}
	for k, v := range want {
		if gotMap[k] != v {
			t.Errorf("key %q: got %v, want %v", k, gotMap[k], v)
		}
	}
}

func TestMergeOutputsNonMappingReplacesAccumulator(t *testing.T) {
	got := mergeOutputs([]any{
		Map{"a": 1},
		"primitive",
		Map{"b": 2},
	})
	gotMap, ok := got.(Map)
	if !ok {
		t.Fatalf("expected final Map result (last non-mapping was overwritten), got %T", got)
	}
	if gotMap["b"] != 2 {
		t.Errorf("expected b=2, got %v", gotMap["b"])
	}
	if _, present := gotMap["a"]; present {
		t.Errorf("key a should not survive the primitive replacing the accumulator")
	}
}

func TestMergeOutputsLastPrimitiveWins(t *testing.T) {
	got := mergeOutputs([]any{
		Map{"a": 1},
		"first",
		"second",
	})
	if got != "second" {
		t.Errorf("expected last primitive to win, got %v", got)
	}
}

func TestShallowCopyDoesNotAliasSourceMap(t *testing.T) {
	src := Map{"x": 1}
	copied := shallowCopy(src).(Map)
	copied["x"] = 2
	if src["x"] != 1 {
		t.Fatalf("mutating the copy poisoned the source: %v", src)
	}
}

func TestShallowCopyPassesThroughNonMap(t *testing.T) {
	if shallowCopy("hello") != "hello" {
		t.Fatal("expected primitive to pass through unchanged")
	}
	if shallowCopy(nil) != nil {
		t.Fatal("expected nil to pass through unchanged")
	}
}

func TestStringSliceAcceptsJSONDecodedAnySlice(t *testing.T) {
	got := stringSlice([]any{"a", "b", 3})
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
