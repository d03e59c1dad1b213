package cmd

import (
	"fmt"

	"github.com/roffe/vcican"
	"github.com/spf13/cobra"
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List available drivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, d := range vcican.ListDrivers() {
			fmt.Println(d.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(driversCmd)
}
