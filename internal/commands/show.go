// internal/commands/show.go
package klimax

import (
	"github.com/spf13/cobra"
)

// showCmd represents the 'show' command, which groups subcommands for displaying resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
	Long:  `The 'show' command groups subcommands that display resources or information related to klimax.`,
}

func init() {
	rootCmd.AddCommand(showCmd)
}
