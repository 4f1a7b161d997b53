package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	StoreDSN    string // "mem", "./flows.db" (sqlite), or a mysql DSN prefixed "mysql://"
	ModuleDir   string
	Format      string // "text" | "json"
	Debug       bool   // settings surface's debug_mode (spec.md §6)
	MaxNodeRuns int    // settings surface's max_node_loops (spec.md §6)
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the flowrunnerd root command and its subcommand
// tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowrunnerd",
		Short: "flowrunnerd runs and manages graph-based flows",
		Long:  "flowrunnerd executes flow definitions against a pluggable module registry and persists them in the Flow Store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.StoreDSN, "store", "mem", `flow store backend: "mem", a sqlite file path, or a mysql:// DSN`)
	cmd.PersistentFlags().StringVar(&opts.ModuleDir, "modules-dir", "./modules", "module registry directory")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable the debug log ring (settings' debug_mode)")
	cmd.PersistentFlags().IntVar(&opts.MaxNodeRuns, "max-node-runs", 1000, "per-node execution cap for cyclic flows (settings' max_node_loops)")

	cmd.AddCommand(newFlowCommand(opts))
	cmd.AddCommand(newModuleCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
