package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "ironquestctl",
	Short:         "Operator tooling for the IronQuest progression server",
	Long:          "ironquestctl seeds and lints the achievement catalog, runs the weekly reset by hand and manages offline stores.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newSeedCmd(),
		newCatalogCmd(),
		newWeeklyResetCmd(),
		newOfflineCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
