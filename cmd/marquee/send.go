package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendOpts struct {
	scrolls int
}

// sendCmd pushes a banner through the daemon, for trying out config and
// keyword rules without waiting for a real notification.
var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Show a test banner",
	Long: `Show a test banner with the given text.

The text runs through the configured keyword rules exactly like a real
notification. Deduplication and rate limiting are skipped;
do-not-disturb is honored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := strings.Join(args, " ")
		if _, err := callControl("Send", body, int32(sendOpts.scrolls)); err != nil {
			return err
		}
		fmt.Println("Banner sent")
		return nil
	},
}

func init() {
	sendCmd.Flags().IntVar(&sendOpts.scrolls, "scrolls", 0, "Override the configured scroll count (0 = use config)")
	rootCmd.AddCommand(sendCmd)
}
