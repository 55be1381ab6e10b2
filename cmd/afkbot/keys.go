package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"afkbot/internal/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key names the firmware understands",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range keys.All() {
			fmt.Fprintln(cmd.OutOrStdout(), k.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
