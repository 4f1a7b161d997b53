package cli

import (
	"github.com/spf13/cobra"
)

func newModuleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Inspect and toggle modules in the Module Registry",
	}
	cmd.AddCommand(newModuleListCommand(opts))
	cmd.AddCommand(newModuleEnableCommand(opts, true))
	cmd.AddCommand(newModuleEnableCommand(opts, false))
	return cmd
}

func newModuleListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known modules ordered by their Order field",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, _, _, err := buildRuntime(opts)
			if err != nil {
				return err
			}
			return printResult(cmd, opts, reg.ListModules())
		},
	}
}

func newModuleEnableCommand(opts *RootOptions, enable bool) *cobra.Command {
	use := "disable <module-id>"
	short := "Disable a module, invalidating the Executor Resolver cache"
	if enable {
		use = "enable <module-id>"
		short = "Enable a module, invalidating the Executor Resolver cache"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, _, _, err := buildRuntime(opts)
			if err != nil {
				return err
			}
			if enable {
				return reg.Enable(args[0])
			}
			return reg.Disable(args[0])
		},
	}
}
