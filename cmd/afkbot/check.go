package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"afkbot/internal/config"
	"afkbot/internal/keys"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and print the effective schedule",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewConfigManager(flags.config).Parse()
	if err != nil {
		return err
	}
	overrides(cmd)(cfg)
	set, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	link := set.Serial.Port + " @ " + strconv.Itoa(set.Serial.Baud)
	if set.Driver == config.DriverDry {
		link += " (dry run)"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "link:", link)
	fmt.Fprintf(out, "human delay: %s-%s, settle: %s, backoff: %s, tick: %s\n",
		set.Engine.HumanDelayMin, set.Engine.HumanDelayMax,
		set.Engine.Settle, set.Engine.Backoff, set.Engine.Tick)

	loggable := make(map[keys.Key]bool, len(set.Engine.Loggable))
	for _, k := range set.Engine.Loggable {
		loggable[k] = true
	}
	ks := make([]keys.Key, 0, len(set.Policies))
	for k := range set.Policies {
		ks = append(ks, k)
	}
	keys.Sort(ks)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "INTERVAL", "KIND", "LOG", "BLOCK")
	for _, k := range ks {
		p := set.Policies[k]
		logged, block := "", ""
		if loggable[k] {
			logged = "yes"
		}
		if d := set.Engine.ExtraBlock[k]; d > 0 {
			block = d.String()
		}
		t.Row(k.String(), p.String(), p.Kind.String(), logged, block)
	}
	fmt.Fprintln(out, t.String())
	return nil
}
