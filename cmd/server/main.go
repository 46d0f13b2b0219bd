// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/tomtom215/photowall/internal/api"
	"github.com/tomtom215/photowall/internal/cache"
	"github.com/tomtom215/photowall/internal/config"
	"github.com/tomtom215/photowall/internal/events"
	"github.com/tomtom215/photowall/internal/ingest"
	"github.com/tomtom215/photowall/internal/instagram"
	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/media"
	"github.com/tomtom215/photowall/internal/store"
	"github.com/tomtom215/photowall/internal/supervisor"
	"github.com/tomtom215/photowall/internal/supervisor/services"
	ws "github.com/tomtom215/photowall/internal/websocket"
)

const (
	eventBusBuffer = 256
	seenCapacity   = 10000
)

// options are the command line flags.
type options struct {
	ConfigPath string `short:"c" long:"config" env:"CONFIG_PATH" description:"path to a YAML config file"`
	EnvFile    string `long:"env-file" description:"dotenv file loaded before configuration"`
}

// parseOptions parses args. It returns flags.ErrHelp wrapped in *flags.Error
// when help was requested.
func parseOptions(args []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			logging.Fatal().Err(err).Str("file", opts.EnvFile).Msg("Failed to load env file")
		}
	}

	cfg, err := config.LoadWithKoanf(opts.ConfigPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Photowall stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring
func run(cfg *config.Config) error {
	logging.Info().
		Str("static_dir", cfg.Media.StaticDir).
		Str("media_root", cfg.Media.Root()).
		Str("allocator", cfg.Media.Allocator).
		Bool("poll_enabled", cfg.Instagram.PollEnabled).
		Msg("Starting Photowall")

	st, err := store.Open(store.Config{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	alloc, err := media.NewAllocator(cfg.Media.Allocator, cfg.Media.Placeholder)
	if err != nil {
		return err
	}
	if cfg.Media.Allocator == config.AllocatorNaive {
		logging.Warn().Msg("Naive sequence allocator selected: concurrent submissions may overwrite each other")
	}

	bus := events.NewBus(eventBusBuffer)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	downloader := media.NewDownloader(media.DownloaderConfig{
		StaticDir:     cfg.Media.StaticDir,
		Root:          cfg.Media.Root(),
		Timeout:       cfg.Media.DownloadTimeout,
		MaxConcurrent: cfg.Media.MaxConcurrentDownloads,
	}, alloc, bus, &http.Client{})
	defer downloader.Close()

	var igAPI instagram.API = instagram.NewCircuitBreakerClient(
		instagram.NewClient(&cfg.Instagram, nil),
		instagram.BreakerSettings{},
	)

	seen := cache.NewSeenSet(seenCapacity, cfg.Instagram.DedupWindow)

	webhooks := ingest.NewWebhookIngestor(ingest.WebhookConfig{
		PhoneLocator: media.CollectionLocator{PrefixWidth: cfg.Twilio.PrefixWidth},
		Filter:       media.NewTagFilter(cfg.Instagram.RequiredTags),
		DefaultToken: cfg.Instagram.DefaultToken,
		Seen:         seen,
	}, downloader, st, igAPI)
	defer webhooks.Close()

	wsHub := ws.NewHub()

	deps := api.Dependencies{
		Webhooks: webhooks,
		Snapshot: media.NewSnapshot(cfg.Media.Root(), cfg.Media.Placeholder),
		Store:    st,
		Hub:      wsHub,
	}
	if cfg.Instagram.ClientID != "" {
		deps.OAuth = instagram.NewOAuth(&cfg.Instagram, nil)
	} else {
		logging.Info().Msg("Account linking disabled (no OAuth client id)")
	}

	var poller *ingest.PollIngestor
	if cfg.Instagram.PollEnabled && cfg.Instagram.Tag != "" {
		poller = ingest.NewPollIngestor(ingest.PollConfig{
			Tag:      cfg.Instagram.Tag,
			Token:    cfg.Instagram.DefaultToken,
			Interval: cfg.Instagram.PollInterval,
			Seen:     seen,
		}, igAPI, st, downloader)
		deps.Poller = poller
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddIngestService(events.NewForwarder(bus, wsHub))
	if poller != nil {
		trigger := services.NewTrigger()
		wsHub.OnConnect(trigger.Fire)
		tree.AddIngestService(services.NewPollerService(poller, trigger))
		logging.Info().Str("tag", cfg.Instagram.Tag).Msg("Tag poller waits for the first viewer")
	}
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", wsHub))

	router := api.NewRouter(
		api.NewHandler(cfg, deps),
		api.NewChiMiddlewareFromConfig(&cfg.Security),
		cfg.Media.StaticDir,
	)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	cancel()
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}
