package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmikkelsen/submerge/internal/api"
	"github.com/lmikkelsen/submerge/internal/batch"
	"github.com/lmikkelsen/submerge/internal/browse"
	"github.com/lmikkelsen/submerge/internal/config"
	"github.com/lmikkelsen/submerge/internal/logger"
	"github.com/lmikkelsen/submerge/internal/mux"
	"github.com/lmikkelsen/submerge/internal/store"
)

const version = "1.0.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ./config/submerge.yaml)")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	mediaPath := flag.String("media", "", "Override media path from config")
	flag.Parse()

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			cfgPath = envPath
		} else {
			cfgPath = "config/submerge.yaml"
		}
	}

	// Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Initialize logger with default level for this warning
		logger.Init("info")
		logger.Warn("Could not load config", "path", cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}

	// Initialize logger with configured level
	logger.Init(cfg.LogLevel)

	// Write defaults back so a first run leaves an editable config behind
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := cfg.Save(cfgPath); err != nil {
			logger.Warn("Could not write default config", "path", cfgPath, "error", err)
		}
	}

	// Override with environment variables, then flags
	if envMedia := os.Getenv("MEDIA_PATH"); envMedia != "" {
		cfg.MediaPath = envMedia
	}
	if *mediaPath != "" {
		cfg.MediaPath = *mediaPath
	}
	if envPort := os.Getenv("PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &cfg.Port)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	// Validate media path exists
	if _, err := os.Stat(cfg.MediaPath); os.IsNotExist(err) {
		logger.Error("Media path does not exist", "path", cfg.MediaPath)
		os.Exit(1)
	}

	// Determine config directory for data storage
	configDir := filepath.Dir(cfgPath)
	if configDir == "." {
		configDir = "config"
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.Warn("Could not create config directory", "error", err)
	}

	// Initialize SQLite run-history store
	runStore, err := store.InitStore(configDir)
	if err != nil {
		logger.Error("Failed to initialize run store", "error", err)
		os.Exit(1)
	}
	defer runStore.Close()

	merger := mux.NewMerger(cfg.MkvmergePath, cfg.FFmpegPath, cfg.SubtitleLanguage, cfg.SubtitleTrackName)
	browser := browse.NewBrowser(cfg.MediaPath)

	runner, err := batch.NewRunnerWithStore(merger, runStore)
	if err != nil {
		logger.Error("Failed to initialize runner", "error", err)
		runStore.Close()
		os.Exit(1) //nolint:gocritic // store closed explicitly above
	}

	handler := api.NewHandler(browser, runner, merger)
	router := api.NewRouter(handler)

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                         SUBMERGE                          ║")
	fmt.Println("║            Batch subtitle muxing for your media           ║")
	versionLine := fmt.Sprintf("v%s", version)
	padding := 59 - len(versionLine)
	fmt.Printf("║%*s%s%*s║\n", padding/2, "", versionLine, (padding+1)/2, "")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Media path:   %s\n", cfg.MediaPath)
	fmt.Printf("  Config:       %s\n", cfgPath)
	fmt.Printf("  Database:     %s\n", runStore.Path())
	fmt.Printf("  Language:     %s (%s)\n", cfg.SubtitleLanguage, cfg.SubtitleTrackName)
	fmt.Println()

	// Report which external tools resolve on PATH; a missing tool is not
	// fatal, runs against it just fail with the tool-not-found message.
	tools := merger.Tools()
	fmt.Println("  Tools:")
	fmt.Printf("    mkvmerge (%s): %s\n", cfg.MkvmergePath, foundLabel(tools.Mkvmerge))
	fmt.Printf("    ffmpeg   (%s): %s\n", cfg.FFmpegPath, foundLabel(tools.FFmpeg))
	fmt.Println()

	fmt.Printf("  Starting server on port %d\n", cfg.Port)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()
	fmt.Println("─────────────────────────────────────────────────────────────")
	logger.Info("Submerge started", "version", version, "port", cfg.Port, "media", cfg.MediaPath)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n  Shutting down...")
		logger.Info("Shutdown signal received")
		runner.Stop()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		runner.Stop()
		os.Exit(1)
	}

	logger.Info("Server stopped")
	fmt.Println("  Goodbye!")
}

func foundLabel(found bool) string {
	if found {
		return "found"
	}
	return "NOT FOUND"
}
