package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccmod/ccmod/internal/session"
	"github.com/ccmod/ccmod/pkgs/toolchain"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the active compiler's family",
	Long:  `Classify reports whether the active compiler speaks the MSVC or POSIX command-line dialect.`,
	Args:  cobra.NoArgs,
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	outDir, err := session.OutputDir()
	if err != nil {
		return fmt.Errorf("failed to resolve output dir: %w", err)
	}
	tc := toolchain.New(outDir)
	fmt.Printf("%s (%s)\n", tc.Family(), tc.Compiler())
	return nil
}
