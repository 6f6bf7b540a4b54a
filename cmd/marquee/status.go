package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marquee/internal/daemon"
)

var statusOpts struct {
	jsonOutput bool
}

// statusCmd shows the daemon state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show marqueed status",
	RunE: func(cmd *cobra.Command, args []string) error {
		call, err := callControl("Status")
		if err != nil {
			return err
		}
		var raw string
		if err := call.Store(&raw); err != nil {
			return err
		}

		if statusOpts.jsonOutput {
			fmt.Println(raw)
			return nil
		}

		var status daemon.Status
		if err := json.Unmarshal([]byte(raw), &status); err != nil {
			return fmt.Errorf("failed to parse status: %w", err)
		}
		printStatus(status)
		return nil
	},
}

func printStatus(status daemon.Status) {
	fmt.Println("marqueed status")
	fmt.Printf("  Uptime:   %s\n", humanize.Time(time.Now().Add(-time.Duration(status.UptimeSeconds)*time.Second)))
	fmt.Printf("  Source:   %s\n", status.Source)
	if status.Title == "" {
		fmt.Println("  Title:    (any)")
	} else {
		fmt.Printf("  Title:    %s\n", status.Title)
	}
	fmt.Printf("  DnD:      %v\n", status.DnDEnabled)
	if status.DedupEnabled {
		fmt.Printf("  Dedup:    on (%d tracked)\n", status.DedupTracked)
	} else {
		fmt.Println("  Dedup:    off")
	}

	fmt.Printf("  Banners:  %d active\n", len(status.ActiveBanners))
	for _, b := range status.ActiveBanners {
		fmt.Printf("    [%d] %s  %s  (%s, %s)\n",
			b.Slot, b.ID, b.Text, b.State, humanize.Time(b.CreatedAt))
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusOpts.jsonOutput, "json", false, "Print raw JSON status")
	rootCmd.AddCommand(statusCmd)
}
