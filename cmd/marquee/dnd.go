package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marquee/internal/store"
)

// dndCmd represents the dnd command group.
var dndCmd = &cobra.Command{
	Use:   "dnd",
	Short: "Manage do-not-disturb mode",
	Long: `Manage do-not-disturb mode for marqueed.

While do-not-disturb is enabled, matching notifications are dropped
before they become banners. 'marquee last' still replays the most
recent notification on demand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dndStatusRun(cmd, args)
	},
}

var dndOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable do-not-disturb",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := callControl("SetDnD", true); err != nil {
			return err
		}
		fmt.Println("Do-not-disturb enabled")
		return nil
	},
}

var dndOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable do-not-disturb",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := callControl("SetDnD", false); err != nil {
			return err
		}
		fmt.Println("Do-not-disturb disabled")
		return nil
	},
}

var dndToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle do-not-disturb",
	RunE: func(cmd *cobra.Command, args []string) error {
		call, err := callControl("ToggleDnD")
		if err != nil {
			return err
		}
		var enabled bool
		if err := call.Store(&enabled); err != nil {
			return err
		}
		if enabled {
			fmt.Println("Do-not-disturb enabled")
		} else {
			fmt.Println("Do-not-disturb disabled")
		}
		return nil
	},
}

var dndStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show do-not-disturb state",
	RunE:  dndStatusRun,
}

// dndStatusRun asks the daemon first and falls back to the shared state
// file so status works while marqueed is down.
func dndStatusRun(cmd *cobra.Command, args []string) error {
	if call, err := callControl("GetDnD"); err == nil {
		var enabled bool
		if err := call.Store(&enabled); err != nil {
			return err
		}
		printDnD(enabled, nil)
		return nil
	}

	state, err := store.LoadSharedState()
	if err != nil {
		return err
	}
	printDnD(state.DnDEnabled, state.DnDLastTransition)
	return nil
}

func printDnD(enabled bool, transition *store.DnDTransition) {
	if enabled {
		fmt.Println("Do-not-disturb: on")
	} else {
		fmt.Println("Do-not-disturb: off")
	}
	if transition != nil {
		fmt.Printf("Last change: %s (%s, %s)\n",
			humanize.Time(time.Unix(transition.Timestamp, 0)),
			transition.Trigger,
			transition.Reason,
		)
	}
}

func init() {
	dndCmd.AddCommand(dndOnCmd)
	dndCmd.AddCommand(dndOffCmd)
	dndCmd.AddCommand(dndToggleCmd)
	dndCmd.AddCommand(dndStatusCmd)
	rootCmd.AddCommand(dndCmd)
}
