// Command dashostctl is a thin Cobra CLI over dashostd's HTTP control
// surface, talking to the daemon's webservice rather than touching the
// process directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:   "dashostctl",
		Short: "control a running dashostd host runtime",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "dashostd control surface base URL")

	root.AddCommand(
		newPluginsCmd(&addr),
		newSchedulerCmd(&addr),
		newUIExtrasCmd(&addr),
		newLogsCmd(&addr),
	)
	return root
}
