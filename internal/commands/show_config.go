// internal/commands/show_config.go
package klimax

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/spf13/cobra"
)

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overridden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		appconfig.ShowConfig(cmd.OutOrStdout(), loadedConfigFile(), GetConfig())
		if DebugEnabled() {
			fmt.Fprintln(cmd.OutOrStdout())
			pp.Println(GetConfig())
		}
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
}
