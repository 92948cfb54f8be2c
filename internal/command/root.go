// Package command implements the favctl command tree.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "favctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "favctl - manage a favorites database",
		Long:          "favctl adds, removes, toggles, and lists favorites in a sqlite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("db", "favorites.db", "sqlite database file")
	cmd.PersistentFlags().String("table", "", "table name (default favorites)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewAddCmd(),
		NewRmCmd(),
		NewToggleCmd(),
		NewCheckCmd(),
		NewListCmd(),
		NewCountCmd(),
		NewClearCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
