// Command flowrunnerd is the flow execution engine's command-line entry
// point: run a flow once, and manage the Flow Store and Module Registry
// it depends on. Structured the way the teacher's brutalist CLI
// (internal/cli, cobra.Command per subcommand, root-owned global flags)
// is structured.
package main

import (
	"fmt"
	"os"

	"github.com/flowrunner/flowrunner/cmd/flowrunnerd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
