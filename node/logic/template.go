package logic

import (
	"bytes"
	"context"
	"text/template"

	"github.com/flowrunner/flowrunner/graph"
)

// TemplateExecutor replaces original_source's ScriptExecutor. The Python
// original handed a node's author a raw `exec()` over `data`/`result`
// dicts; spec.md's Non-goals explicitly exclude building a security
// sandbox for user-supplied node code, so there is no safe way to port
// that semantic. TemplateExecutor keeps the same "derive a field from the
// input" use case but expands a text/template against the input map
// instead of running arbitrary code: config["template"] is executed with
// the input as its data, and the rendered text is written to
// config["output_key"] (default "result") alongside the original input.
type TemplateExecutor struct{}

func NewTemplateExecutor() graph.Executor { return TemplateExecutor{} }

func (TemplateExecutor) Receive(_ context.Context, input any, config graph.Map) (any, error) {
	if input == nil {
		return graph.Stopped, nil
	}
	tmplSrc, _ := config["template"].(string)
	if tmplSrc == "" {
		return input, nil
	}

	tmpl, err := template.New("node").Parse(tmplSrc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return nil, err
	}

	outputKey, _ := config["output_key"].(string)
	if outputKey == "" {
		outputKey = "result"
	}

	out := graph.Map{}
	if inMap, ok := input.(graph.Map); ok {
		for k, v := range inMap {
			out[k] = v
		}
	}
	out[outputKey] = buf.String()
	return out, nil
}

func (TemplateExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
