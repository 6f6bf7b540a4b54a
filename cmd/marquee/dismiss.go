package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dismissOpts struct {
	all bool
}

// dismissCmd force-closes banners.
var dismissCmd = &cobra.Command{
	Use:   "dismiss [banner-id]",
	Short: "Dismiss active banners",
	Long: `Dismiss active banners.

Without arguments, dismisses the newest banner. Pass a banner id (from
'marquee status') to dismiss a specific one, or --all to clear the
whole stack.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case dismissOpts.all:
			if _, err := callControl("DismissAll"); err != nil {
				return err
			}
			fmt.Println("Dismissed all banners")
		case len(args) == 1:
			if _, err := callControl("Dismiss", args[0]); err != nil {
				return err
			}
			fmt.Println("Dismissed", args[0])
		default:
			if _, err := callControl("DismissLast"); err != nil {
				return err
			}
			fmt.Println("Dismissed newest banner")
		}
		return nil
	},
}

func init() {
	dismissCmd.Flags().BoolVar(&dismissOpts.all, "all", false, "Dismiss every active banner")
	rootCmd.AddCommand(dismissCmd)
}
