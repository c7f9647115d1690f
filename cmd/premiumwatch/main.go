package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/premiumwatch/internal/config"
	"github.com/rewired-gh/premiumwatch/internal/health"
	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/marketclock"
	"github.com/rewired-gh/premiumwatch/internal/marketdata"
	"github.com/rewired-gh/premiumwatch/internal/metrics"
	"github.com/rewired-gh/premiumwatch/internal/models"
	"github.com/rewired-gh/premiumwatch/internal/monitor"
	"github.com/rewired-gh/premiumwatch/internal/notify"
	"github.com/rewired-gh/premiumwatch/internal/storage"
	"github.com/rewired-gh/premiumwatch/internal/telegram"
)

var configPath string

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	root := &cobra.Command{
		Use:          "premiumwatch",
		Short:        "Alert when an FX-exposed ETF trades close to its indicative NAV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (environment only if empty)")
	root.AddCommand(checkCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// sources builds the NAV provider and quote fetcher, each behind its own client.
func sources(cfg *config.Config) (*marketdata.NavProvider, *marketdata.QuoteSource) {
	clientConfig := marketdata.ClientConfig{
		Timeout:           cfg.Sources.Timeout,
		UserAgent:         cfg.Sources.UserAgent,
		RequestsPerSecond: cfg.Sources.RequestsPerSecond,
		BreakerFailures:   cfg.Sources.BreakerFailures,
		BreakerTimeout:    cfg.Sources.BreakerTimeout,
	}

	amfi := marketdata.NewAMFISource(
		marketdata.NewClient("amfi", clientConfig),
		cfg.Sources.NavURL,
		cfg.Fund.SchemeCode,
		cfg.Sources.NavDelimiter[0],
	)
	quotes := marketdata.NewQuoteSource(
		marketdata.NewClient("yahoo", clientConfig),
		cfg.Sources.ChartURL,
		cfg.Fund.Symbol,
		cfg.Fund.FXSymbol,
	)
	return marketdata.NewNavProvider(amfi, cfg.Fund.FallbackNAV), quotes
}

func monitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{
		FundName:     cfg.Fund.Name,
		PollInterval: cfg.Monitor.PollInterval,
		Cooldown:     cfg.Monitor.Cooldown,
		ClosedChunk:  cfg.Monitor.ClosedChunk,
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if configPath != "" {
		logger.Info("Configuration loaded from %s", configPath)
	}

	nav, quotes := sources(cfg)

	var senders []notify.Sender
	if cfg.Twilio.Enabled {
		api := notify.NewTwilioAPI(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
		if cfg.Twilio.FromWhatsApp != "" {
			senders = append(senders, notify.NewWhatsAppSender(api, cfg.Twilio.FromWhatsApp, cfg.Twilio.ToPhone))
		}
		if cfg.Twilio.PhoneNo != "" {
			senders = append(senders, notify.NewVoiceSender(api, cfg.Twilio.PhoneNo, cfg.Twilio.ToPhone))
		}
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Error("Failed to initialize Telegram client: %v", err)
			return err
		}
		senders = append(senders, telegramClient)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	dispatcher := notify.NewDispatcher(senders...)
	logger.Info("Alert channels: %v", dispatcher.Channels())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	g, gctx := errgroup.WithContext(ctx)

	var failures *failureTracker
	if telegramClient != nil {
		failures = newFailureTracker(telegramClient)
	}

	opts := []monitor.Option{
		monitor.WithMetrics(mt),
		monitor.WithStepHook(func(act monitor.Action) { failures.observe(gctx, act) }),
	}

	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage.MaxSamples, cfg.Storage.DBPath)
		if err != nil {
			logger.Error("Failed to initialize storage: %v", err)
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		opts = append(opts, monitor.WithJournal(store))
	}

	mon := monitor.New(monitorConfig(cfg), marketclock.New(), nav, quotes, dispatcher, opts...)

	if cfg.Server.Enabled {
		srv := health.NewServer(health.Config{
			ListenAddr: cfg.Server.ListenAddr,
			StaleAfter: cfg.Server.StaleAfter,
		}, mon.Status, reg)
		startHealth(gctx, g, srv)
	}

	if telegramClient != nil {
		telegramClient.ListenForCommands(gctx, func() string { return formatStatus(mon.Status()) })
	}

	logger.Info("Starting premium monitor for %s (poll: %v, cooldown: %v)",
		cfg.Fund.Symbol, cfg.Monitor.PollInterval, cfg.Monitor.Cooldown)

	g.Go(func() error {
		err := mon.Run(gctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped: %v", err)
		return err
	}
	logger.Info("Service stopped")
	return nil
}

// startHealth binds and serves the health server in g. A bind or serve failure
// is logged and never ends the group, so the monitor keeps running without it.
func startHealth(ctx context.Context, g *errgroup.Group, srv *health.Server) bool {
	if err := srv.Listen(); err != nil {
		logger.Error("Health server disabled: %v", err)
		return false
	}
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			logger.Error("Health server failed: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down health server: %v", err)
		}
		return nil
	})
	return true
}

// formatStatus renders a status snapshot for chat replies.
func formatStatus(st models.Status) string {
	s := fmt.Sprintf("Latch: %s\nMarket open: %t\nOfficial NAV: ₹%.2f (%s)\nLast action: %s",
		st.LatchName, st.MarketOpen, st.OfficialNAV, st.NavSource, st.LastAction)
	if st.LastSample != nil {
		s += fmt.Sprintf("\nPrice: ₹%.2f | iNAV: ₹%.2f | FX: %.2f | Premium: %.2f%%",
			st.LastSample.Quote.MarketPrice, st.LastSample.INAV, st.LastSample.Quote.LiveFX, st.LastSample.PremiumPct)
	}
	if st.LastError != "" {
		s += "\nLast error: " + st.LastError
	}
	if !st.NextWake.IsZero() {
		s += "\nNext wake: " + st.NextWake.In(marketclock.IST).Format("Mon 15:04")
	}
	return s
}
