package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/menta2k/snapcrop/internal/api"
	"github.com/menta2k/snapcrop/internal/config"
	"github.com/menta2k/snapcrop/pkg/history"
)

func main() {
	var configPath, addr, historyDir string

	flag.StringVar(&configPath, "config", "", "config file (default: built-in defaults)")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.StringVar(&historyDir, "history", "", "history directory (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if historyDir != "" {
		cfg.History.Dir = historyDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var store *history.Store
	if cfg.History.Enabled {
		store = history.NewStore(cfg.History.Dir, history.WithLogger(logger))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(store, logger).NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Server running on %s", cfg.Server.Addr)
	log.Fatal(srv.ListenAndServe())
}
