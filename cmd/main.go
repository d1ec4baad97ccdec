package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perpstack/trade-executor/internal/api"
	"github.com/perpstack/trade-executor/internal/config"
	"github.com/perpstack/trade-executor/internal/db"
	"github.com/perpstack/trade-executor/internal/exchange"
	"github.com/perpstack/trade-executor/internal/executor"
	"github.com/perpstack/trade-executor/internal/logging"
	"github.com/perpstack/trade-executor/internal/metrics"
	"github.com/perpstack/trade-executor/internal/notifier"
	"github.com/perpstack/trade-executor/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "trade-executor: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal, err := db.Open(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle, log)
	if err != nil {
		return err
	}
	defer journal.Close()
	if err := journal.Init(ctx); err != nil {
		return err
	}

	venue := exchange.NewWallexExchange(cfg.WallexAPIKey, log)
	reg := registry.NewClient(cfg.RegistryURL, log)

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notify = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID,
			cfg.NotificationRetries, cfg.NotificationDelay, log)
	}

	newTickSource := func(symbol string) executor.TickSource {
		w := exchange.NewWallexTickWatcher(symbol, log)
		w.Start(ctx)
		return w
	}

	exec := executor.New(cfg, reg, venue, journal, notify, newTickSource, log)

	apiSrv := api.NewServer(journal, venue, exec, log).Serve(cfg.APIListen)
	metricsSrv := metrics.Serve(cfg.MetricsListen)
	log.Info().Str("api", cfg.APIListen).Str("metrics", cfg.MetricsListen).
		Dur("poll_interval", cfg.PollInterval).Msg("trade executor started")

	err = exec.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("trade executor stopped")
	return nil
}
