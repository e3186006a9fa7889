package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "lichess-recap %s\n", version.String())
	},
}
