package commands

import (
	"fmt"

	"notifyapp/internal/version"

	"github.com/spf13/cobra"
)

// VersionCommand returns the version command
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("version:    %s\n", version.Version)
			fmt.Printf("commit:     %s\n", version.Commit)
			fmt.Printf("build time: %s\n", version.BuildTime)
		},
	}
}
