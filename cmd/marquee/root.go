package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"marquee/internal/daemon"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	logger     *slog.Logger
	globalOpts struct {
		verbose bool
	}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Control the marqueed banner daemon",
	Long: `marquee controls a running marqueed instance over D-Bus.

marqueed watches desktop notifications matching a configured title and
shows them as scrolling top-of-screen banners. This CLI dismisses
banners, manages do-not-disturb, sends test banners, and reports
daemon status.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// controlObject returns the daemon's control object on the session bus.
func controlObject() (dbus.BusObject, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return conn.Object(daemon.ControlBusName, daemon.ControlPath), nil
}

// callControl invokes a control method, translating the common
// daemon-not-running failure into a readable error.
func callControl(method string, args ...interface{}) (*dbus.Call, error) {
	obj, err := controlObject()
	if err != nil {
		return nil, err
	}
	call := obj.Call(daemon.ControlInterface+"."+method, 0, args...)
	if call.Err != nil {
		if dbusErr, ok := call.Err.(dbus.Error); ok && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
			return nil, fmt.Errorf("marqueed is not running")
		}
		return nil, call.Err
	}
	return call, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
