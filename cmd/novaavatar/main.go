// Package main provides the novaavatar command: the live avatar service and
// offline rendering tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "novaavatar",
		Short: "NOVA holographic avatar rig",
		Long: `NOVA is a procedurally animated avatar driven by conversation signals.

It smooths a full body pose toward targets resolved from the session state,
speech loudness and classified utterances, and renders every frame as SVG.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "config file (default ~/.novaavatar/config.yaml)")

	root.AddCommand(newRunCmd(), newRenderCmd(), newClassifyCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "novaavatar %s\n", version)
		},
	}
}
