package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/premiumwatch/internal/config"
	"github.com/rewired-gh/premiumwatch/internal/marketclock"
	"github.com/rewired-gh/premiumwatch/internal/monitor"
	"github.com/rewired-gh/premiumwatch/internal/notify"
)

// checkCmd performs a single evaluation without touching any alert channel.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch NAV and quotes once and print the current premium",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig((*config.Config).ValidateCore)
			if err != nil {
				return err
			}

			nav, quotes := sources(cfg)
			clock := marketclock.New()
			mon := monitor.New(monitorConfig(cfg), clock, nav, quotes, notify.NewDispatcher())

			reading := mon.RefreshNAV(cmd.Context())
			now := time.Now()
			sample, err := mon.Evaluate(cmd.Context(), now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] Price: ₹%.2f | iNAV: ₹%.2f | FX: %.2f | Premium: %.2f%%\n",
				now.In(clock.Location()).Format("15:04:05"),
				sample.Quote.MarketPrice, sample.INAV, sample.Quote.LiveFX, sample.PremiumPct)
			fmt.Fprintf(out, "Official NAV: ₹%.2f (%s) | Market open: %t | Target: <= %.1f%%\n",
				reading.Value, reading.Source, clock.IsMarketOpen(now), monitor.TargetPremiumLimit)
			return nil
		},
	}
}
