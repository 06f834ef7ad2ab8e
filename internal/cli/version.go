package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/engine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flowstate version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowstate %s\n", engine.Version)
	},
}
