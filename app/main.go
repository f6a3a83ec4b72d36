package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/metzger100/newznabrewritarr/app/api"
	"github.com/metzger100/newznabrewritarr/app/cfg"
	"github.com/metzger100/newznabrewritarr/app/proxy"
	"github.com/metzger100/newznabrewritarr/app/rewrite"
)

const logo = `
 _   _                              _     ____                _ _
| \ | | _____      _______ _ __   _| |__ |  _ \ _____      _(_) |_ __ _ _ __ _ __
|  \| |/ _ \ \ /\ / /_  / '_ \ / _` + "`" + ` | '_ \| |_) / _ \ \ /\ / / | __/ _` + "`" + ` | '__| '__|
| |\  |  __/\ V  V / / /| | | | (_| | |_) |  _ <  __/\ V  V /| | || (_| | |  | |
|_| \_|\___| \_/\_/ /___|_| |_|\__,_|_.__/|_| \_\___| \_/\_/ |_|\__\__,_|_|  |_|
`

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.LogLevel)

	fmt.Print(logo)
	slog.Info("Starting NewznabRewritarr", "version", appCfg.Version)
	slog.Info("Configuration",
		"port", appCfg.Port,
		"upstream_proxy", cmp.Or(appCfg.UpstreamProxy, "none (direct)"),
		"rewrite_music", appCfg.RewriteMusic,
		"rewrite_books", appCfg.RewriteBooks,
		"rewrite_audiobooks", appCfg.RewriteAudiobooks,
		"best_effort", appCfg.BestEffort,
		"debug_attrs", appCfg.DebugAttrs,
		"log_level", appCfg.LogLevel)

	rules, err := rewrite.LoadRules(appCfg.RulesFile)
	if err != nil {
		slog.Error("Failed to load rules file", "path", appCfg.RulesFile, "error", err)
		os.Exit(1)
	}

	engine := rewrite.NewEngine(rewrite.Options{
		Music:      appCfg.RewriteMusic,
		Books:      appCfg.RewriteBooks,
		Audiobooks: appCfg.RewriteAudiobooks,
		BestEffort: appCfg.BestEffort,
		DebugAttrs: appCfg.DebugAttrs,
	}, rules)

	stats := &proxy.Stats{}

	forwarder, err := proxy.NewForwarder(engine, stats)
	if err != nil {
		slog.Error("Failed to initialize forwarder", "error", err)
		os.Exit(1)
	}
	tunnel := proxy.NewTunnel(stats)
	admin := api.NewServer(api.NewHandler(stats))

	httpServer := &http.Server{
		Addr:    ":" + appCfg.Port,
		Handler: proxy.NewServer(forwarder, tunnel, admin),
		// No read/write timeouts: CONNECT tunnels are long-lived and the
		// relay enforces its own idle deadline.
		ReadHeaderTimeout: 30 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Proxy listening", "addr", httpServer.Addr)
		slog.Info("Configure in Prowlarr: Settings -> Indexers -> Add HTTP Proxy, tag your indexers and set their URLs to http://")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	// Stop accepting new connections; in-flight requests and tunnels drain
	// naturally.
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func setupLogger(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}
