package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"afkbot/internal/app"
	"afkbot/internal/config"
)

var version = "dev"

// flags holds the root command's flag values.
var flags struct {
	config   string
	ui       string
	port     string
	baud     int
	dryRun   bool
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "afkbot",
	Short: "Press keys on a schedule through a serial HID bridge",
	Long: `afkbot sends key names ("F3\n") over a serial link to a microcontroller
that types them as a USB keyboard. Every key has its own interval: off, a
fixed number of seconds, a random range or a cron expression.

Without --config the built-in key table is used.

Controls (terminal UI):
  s, q, ctrl+c - Stop
  c            - Clear activity`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runBot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "config file (.json, .yaml, .toml)")
	pf.StringVar(&flags.port, "port", "", "serial port, overrides serial.port")
	pf.IntVar(&flags.baud, "baud", 0, "baud rate, overrides serial.baud")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "log frames instead of writing to a device")
	pf.StringVar(&flags.logLevel, "log-level", "", "trace|debug|info|warn|error")

	rootCmd.Flags().StringVar(&flags.ui, "ui", "", "observer: auto|tui|console|none")
}

// overrides returns the config mutations for the flags set on cmd.
func overrides(cmd *cobra.Command) func(*config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	return func(c *config.Config) {
		if changed("port") {
			c.Serial.Port = strings.TrimSpace(flags.port)
		}
		if changed("baud") {
			c.Serial.Baud = flags.baud
		}
		if changed("dry-run") && flags.dryRun {
			c.Serial.Driver = config.DriverDry
		}
		if changed("ui") {
			c.UI.Mode = flags.ui
		}
		if changed("log-level") {
			c.Logging.Level = flags.logLevel
		}
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(flags.config,
		app.WithOverrides(overrides(cmd)),
		app.WithTerminal(term.IsTerminal(int(os.Stdout.Fd()))),
		app.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopUser
	select {
	case <-ctx.Done():
		reason = app.StopSignal
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)

	if err := a.Err(); err != nil {
		return err
	}
	return nil
}

// execute runs the root command and returns the process exit code.
func execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "afkbot:", err)
		return 1
	}
	return 0
}
