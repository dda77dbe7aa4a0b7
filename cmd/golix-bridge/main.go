// Golix Bridge - HTTP command relay with a single-slot reply mailbox
// License: MIT

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "golix-bridge",
		Short:         "Message relay bridging chat commands to LLM backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("golix-bridge %s\n", formatVersion())
			if buildTime != "" {
				fmt.Printf("  Build: %s\n", buildTime)
			}
			fmt.Printf("  Go: %s\n", runtime.Version())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
