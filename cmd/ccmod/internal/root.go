package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ccmod",
	Short: "ccmod runs native module build steps with propagated configuration",
	Long: `ccmod runs one native module's build step: it merges the module's own
compiler settings with the public settings published by its dependencies,
compiles the module, and publishes the resulting configuration for
downstream modules to consume in their own build steps.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
