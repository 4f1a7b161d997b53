package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/flowrunner/flowrunner/flowstore"
	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/emit"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newFlowCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage and run flow definitions",
	}
	cmd.AddCommand(newFlowRunCommand(opts))
	cmd.AddCommand(newFlowListCommand(opts))
	cmd.AddCommand(newFlowImportCommand(opts))
	cmd.AddCommand(newFlowExportCommand(opts))
	cmd.AddCommand(newFlowRunsCommand(opts))
	return cmd
}

func newFlowRunsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <flow-id>",
		Short: "List recorded run history for a flow, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.StoreDSN)
			if err != nil {
				return err
			}
			history, ok := store.(flowstore.RunHistory)
			if !ok {
				return fmt.Errorf("flow runs: %s backend does not record run history", opts.StoreDSN)
			}
			runs, err := history.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, opts, runs)
		},
	}
}

func newFlowRunCommand(opts *RootOptions) *cobra.Command {
	var startNodeID string
	var inputJSON string

	cmd := &cobra.Command{
		Use:   "run <flow-id>",
		Short: "Run a single flow to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.StoreDSN)
			if err != nil {
				return err
			}
			flow, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load flow: %w", err)
			}

			engine, _, _, ring, err := buildRuntime(opts)
			if err != nil {
				return err
			}

			input := graph.Map{}
			if inputJSON != "" {
				if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
					return fmt.Errorf("parse --input: %w", err)
				}
			}
			history, _ := store.(flowstore.RunHistory)
			runID := uuid.NewString()
			if history != nil {
				_ = history.RecordRunStart(cmd.Context(), flow.ID, runID)
			}

			out, err := engine.Run(cmd.Context(), flow, flow.ID, input, startNodeID)
			if history != nil {
				outMap, _ := out.(graph.Map)
				_ = history.RecordRunEnd(cmd.Context(), flow.ID, runID, outMap, err)
			}

			if opts.Debug {
				printDebugLog(cmd, opts, ring)
			}

			if err != nil {
				printResult(cmd, opts, out)
				return err
			}
			return printResult(cmd, opts, out)
		},
	}
	cmd.Flags().StringVar(&startNodeID, "start", "", "force execution to start at this node id")
	cmd.Flags().StringVar(&inputJSON, "input", "", "initial input as a JSON object")
	return cmd
}

func newFlowListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored flows, most recently created first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.StoreDSN)
			if err != nil {
				return err
			}
			flows, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, opts, flows)
		},
	}
}

func newFlowImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace the flow collection with a YAML bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			flows, err := parseYAMLFlows(data)
			if err != nil {
				return err
			}
			store, err := openStore(opts.StoreDSN)
			if err != nil {
				return err
			}
			if err := store.Import(cmd.Context(), flows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d flow(s)\n", len(flows))
			return nil
		},
	}
}

func newFlowExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.yaml>",
		Short: "Export the flow collection as a YAML bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.StoreDSN)
			if err != nil {
				return err
			}
			flows, err := store.Export(cmd.Context())
			if err != nil {
				return err
			}
			data, err := marshalYAMLFlows(flows)
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}

// printDebugLog renders the Debug Log Ring's snapshot (spec.md §4.G),
// newest event first, after a --debug run. The ring is process-local to
// this one-shot invocation, so this is the only place its contents are
// ever surfaced for the CLI.
func printDebugLog(cmd *cobra.Command, opts *RootOptions, ring *emit.RingEmitter) {
	snap := ring.Snapshot()
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.ErrOrStderr())
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(snap)
		return
	}
	for _, entry := range snap {
		fmt.Fprintf(cmd.ErrOrStderr(), "[debug #%d] node=%s msg=%s meta=%v\n", entry.Seq, entry.Event.NodeID, entry.Event.Msg, entry.Event.Meta)
	}
}

func printResult(cmd *cobra.Command, opts *RootOptions, v any) error {
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	return nil
}

func parseYAMLFlows(data []byte) ([]*graph.Flow, error) {
	return flowstore.UnmarshalYAML(data)
}

func marshalYAMLFlows(flows []*graph.Flow) ([]byte, error) {
	return flowstore.MarshalYAML(flows)
}
