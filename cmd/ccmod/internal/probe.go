package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccmod/ccmod/internal/session"
	"github.com/ccmod/ccmod/pkgs/toolchain"
)

var probeCmd = &cobra.Command{
	Use:   "probe [flag]",
	Short: "Check whether the active compiler supports a flag",
	Long: `Probe compiles a trivial translation unit with the given flag and
reports whether the active compiler accepted it. An unsupported flag is
an expected outcome, not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	outDir, err := session.OutputDir()
	if err != nil {
		return fmt.Errorf("failed to resolve output dir: %w", err)
	}
	tc := toolchain.New(outDir)
	if tc.Supports(context.Background(), args[0]) {
		fmt.Printf("%s: supported\n", args[0])
	} else {
		fmt.Printf("%s: unsupported\n", args[0])
	}
	return nil
}
