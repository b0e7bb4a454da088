// Command kvsd runs a kvsd server: load configuration, open the
// default/default table, wire the middleware chain, and serve until
// SIGINT/SIGTERM. Adapted from the teacher's cmd/flashdb/main.go
// (flag parsing, signal-driven context cancellation, srv.Start(ctx) call
// shape) generalized from FlashDB's single RESP engine to kvsd's
// middleware chain over one or more table actors.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/kvsd/kvsd/internal/changefeed"
	"github.com/kvsd/kvsd/internal/config"
	"github.com/kvsd/kvsd/internal/hotkeys"
	"github.com/kvsd/kvsd/internal/middleware"
	"github.com/kvsd/kvsd/internal/server"
	"github.com/kvsd/kvsd/internal/table"
)

func main() {
	if err := run(); err != nil {
		slog.Error("kvsd: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	jsonConfig := flag.Bool("json", false, "parse -config as JSON instead of YAML")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := loadConfig(*configPath, *jsonConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tablePath := filepath.Join(cfg.Kvsd.RootDir, "namespaces", "default", "default", "default.kvs")
	if err := os.MkdirAll(filepath.Dir(tablePath), 0o755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}

	feed := changefeed.NewBroadcaster(256)
	tracker := hotkeys.New(5)

	tb, err := table.Open("default", "default", tablePath, feed, tracker, log)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer tb.Close()

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	var tableWG sync.WaitGroup
	tableWG.Add(1)
	go tb.Run(ctx, &tableWG)

	dispatcher := middleware.NewDispatcher()
	dispatcher.Register("default", "default", tb.Inbound)

	users := make([]middleware.UserEntry, 0, len(cfg.Kvsd.Users))
	for _, u := range cfg.Kvsd.Users {
		users = append(users, middleware.UserEntry{Username: u.Username, Password: u.Password})
	}

	chain := &middleware.Logger{
		Log:     log,
		Tracker: tracker,
		Next: &middleware.Authenticator{
			Users: users,
			Next:  &middleware.Authorizer{Next: dispatcher},
		},
	}

	var tlsConfig *tls.Config
	if !cfg.Server.DisableTLS {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertificate, cfg.Server.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	srv := server.New(chain, server.Config{
		ListenAddr:            fmt.Sprintf("%s:%d", cfg.Server.ListenHost, cfg.Server.ListenPort),
		TLSConfig:             tlsConfig,
		MaxConnections:        cfg.Server.MaxTCPConnections,
		ConnectionBufferBytes: cfg.Server.ConnectionTCPBufferBytes,
		AuthenticateTimeout:   time.Duration(cfg.Server.AuthenticateTimeoutMilliseconds) * time.Millisecond,
		Log:                   log,
	})

	startErr := srv.Start(ctx)

	// Start returns once the accept loop is down; cancelling here too
	// covers the case where it returned on its own error rather than on
	// signal-driven shutdown, so the table actor is always told to drain
	// and exit before this function returns.
	cancel()
	tableWG.Wait()

	if startErr != nil {
		return fmt.Errorf("server: %w", startErr)
	}

	log.Info("kvsd shutdown complete")
	return nil
}

func loadConfig(path string, isJSON bool) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("-config is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := config.FormatYAML
	if isJSON {
		format = config.FormatJSON
	}
	return config.Load(f, format)
}
