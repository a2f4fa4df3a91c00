// Package main is the entry point for the omv-mcp server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesprial/omv-mcp/internal/audit"
	"github.com/jamesprial/omv-mcp/internal/auth"
	"github.com/jamesprial/omv-mcp/internal/config"
	"github.com/jamesprial/omv-mcp/internal/metrics"
	"github.com/jamesprial/omv-mcp/internal/omv"
	"github.com/jamesprial/omv-mcp/internal/sensor"
	"github.com/jamesprial/omv-mcp/internal/tools"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	cfg := loadConfig()
	config.ApplyEnvOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := sensor.ValidateConditions(cfg.OMV.MonitoredConditions); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	tokenBefore := cfg.Server.AuthToken
	token, err := config.EnsureAuthToken(cfg)
	if err != nil {
		log.Printf("warning: could not generate auth token: %v — running without authentication", err)
	} else if tokenBefore == "" {
		log.Printf("generated auth token (set OMV_MCP_AUTH_TOKEN to persist): %s", token)
	}

	// Open audit log writer if enabled.
	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		f, err := os.OpenFile(cfg.Audit.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Printf("warning: could not open audit log %q: %v — audit logging disabled", cfg.Audit.LogPath, err)
		} else {
			auditLog = audit.New(f)
			defer f.Close()
		}
	}

	// Metrics registry and poll recorder.
	var recorder *metrics.Recorder
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(registry)
	}

	// OMV client and sensor adapter.
	client, err := omv.NewRPCClient(cfg.OMV)
	if err != nil {
		log.Fatalf("failed to create OMV client: %v", err)
	}

	adapter := sensor.New(client, sensor.Options{
		Name:       cfg.OMV.Name,
		Conditions: cfg.OMV.MonitoredConditions,
		MinRefresh: time.Duration(cfg.OMV.PollInterval) * time.Second,
		Recorder:   recorder,
	})

	// Poll scheduler. The adapter absorbs all poll errors, so the job func
	// never fails; singleton mode keeps polls from overlapping.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}

	pollTimeout := 2 * time.Duration(cfg.OMV.Timeout) * time.Second
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(cfg.OMV.PollInterval)*time.Second),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			defer cancel()
			adapter.Update(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("failed to schedule poll job: %v", err)
	}
	scheduler.Start()

	// Build MCP server and register the sensor tools.
	mcpServer := server.NewMCPServer(
		"omv-mcp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	tools.RegisterAll(mcpServer, sensor.SensorTools(adapter, auditLog))

	// HTTP mux: metrics endpoint (if enabled) plus the MCP handler behind
	// auth. The metrics path is exempt from auth so scrapers can reach it.
	mux := http.NewServeMux()
	var skipPaths []string
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		skipPaths = append(skipPaths, cfg.Metrics.Path)
	}
	mcpHandler := server.NewStreamableHTTPServer(mcpServer)
	mux.Handle("/", auth.Middleware(cfg.Server.AuthToken, skipPaths...)(mcpHandler))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("omv-mcp polling %s every %ds, listening on %s", cfg.OMV.Host, cfg.OMV.PollInterval, addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down...")

	if err := scheduler.Shutdown(); err != nil {
		log.Printf("scheduler shutdown error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	log.Println("server stopped")
}

// loadConfig attempts to read the config file from the path specified by
// OMV_MCP_CONFIG_PATH or the default /config/config.yaml. If the file
// cannot be read, DefaultConfig is returned.
func loadConfig() *config.Config {
	path := os.Getenv("OMV_MCP_CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Printf("could not load config from %q (%v), using defaults", path, err)
		return config.DefaultConfig()
	}

	log.Printf("loaded config from %q", path)
	return cfg
}
