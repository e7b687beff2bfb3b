package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"bilical/internal/bilibili"
	"bilical/internal/config"
	"bilical/internal/ics"
	appLog "bilical/internal/log"
	"bilical/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("bilical starting", "version", "0.1.0")
	defer appLog.Sync()

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"fetch_timeout_seconds", conf.FetchTimeoutSeconds,
		"external_count", len(conf.External),
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	fetcher := ics.NewFetcher(conf.CacheDir, conf.FetchTimeout())

	if flags.once {
		prewarm(ctx, fetcher, conf)
		return
	}

	// Periodic prewarm of the external ICS cache.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() { prewarm(ctx, fetcher, conf) }); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	client := bilibili.NewClient(conf.FetchTimeout())
	server := web.NewServer(conf, client, fetcher)

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("bilical exiting")
}

// prewarm refreshes the on-disk cache for every configured external
// source so merged-feed requests hit warm bodies.
func prewarm(ctx context.Context, fetcher *ics.Fetcher, conf *config.Config) {
	if len(conf.External) == 0 {
		return
	}
	sources := make([]ics.Source, 0, len(conf.External))
	for _, e := range conf.External {
		label := e.Name
		if label == "" {
			label = e.URL
		}
		sources = append(sources, ics.Source{ID: e.ID, Label: label, URL: e.URL})
	}
	results := fetcher.FetchAll(ctx, sources)
	appLog.Info("external ics prewarm complete", "requested", len(sources), "fetched", len(results))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/bilical/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Prewarm the external ICS cache once and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
