package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"afkbot/internal/transport/serialport"
)

// listPorts is replaced in tests.
var listPorts = serialport.List

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports present on this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := listPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
