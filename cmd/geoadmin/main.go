package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/kcmvp/geoadmin/cmd/geoadmin/serve"
	"github.com/kcmvp/geoadmin/cmd/geoadmin/user"
	"github.com/kcmvp/geoadmin/cmd/internal"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geoadmin",
	Short: "geoadmin is an administration panel for a geography database.",
	Long: `geoadmin serves a paginated CRUD grid over the continents, countries, regions,
cities and districts tables, behind a cookie session with a sliding expiry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(internal.ConfigFlag, "", "settings file (default: application.yml discovery)")
	rootCmd.AddCommand(serve.ServeCmd)
	rootCmd.AddCommand(user.UserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
