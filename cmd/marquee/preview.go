package main

import (
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/banner"
	"marquee/internal/config"
	"marquee/internal/render"
	"marquee/internal/stack"
	"marquee/internal/transform"
)

var previewOpts struct {
	configPath string
}

// previewCmd runs a local banner engine against the terminal surface, so
// scroll speed, timings, and keyword rules can be tuned without a
// running daemon or real notifications.
var previewCmd = &cobra.Command{
	Use:   "preview [text]...",
	Short: "Preview banners in the terminal",
	Long: `Preview banners in the terminal using the current configuration.

Each text argument becomes one banner; without arguments a few sample
banners are shown. Keyword rules apply exactly as they would in the
daemon. Press 1-9 to click a banner, q to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(previewOpts.configPath)
		if err != nil {
			return err
		}

		rules, err := config.LoadRules(cfg.Rules.File)
		if err != nil {
			return err
		}
		tr := transform.New(transform.CompileRules(rules, logger), logger)

		term := render.NewTerminal(logger)
		engine := stack.New(render.NewRetrying(term, logger), cfg.Engine.Tick.Duration(), logger)
		term.OnClick = engine.Click
		engine.Start()
		defer engine.Stop()

		texts := args
		if len(texts) == 0 {
			texts = []string{
				"first sample banner scrolling across the screen",
				"second sample banner",
				"third sample banner, click me a few times",
			}
		}

		go func() {
			for i, s := range texts {
				time.Sleep(time.Duration(i*500) * time.Millisecond)
				rich := tr.Apply(s)
				width := banner.EstimateTextWidth(rich.Plain(), cfg.Banner.FontSize)
				engine.Admit(banner.SnapshotConfig(cfg.Banner), rich, width)
			}
		}()

		return term.Run()
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewOpts.configPath, "config", "", "Path to config file")
	rootCmd.AddCommand(previewCmd)
}
