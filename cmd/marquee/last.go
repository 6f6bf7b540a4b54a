package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// lastCmd replays the most recent notification as a new banner.
var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Replay the most recent notification",
	Long: `Replay the most recent notification (within the last five minutes)
as a new banner. Works even while do-not-disturb is enabled, so a
silenced notification can still be brought up on demand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := callControl("ShowLast"); err != nil {
			return err
		}
		fmt.Println("Replaying last notification")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lastCmd)
}
