package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltd/feltd/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"feltd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Address to bind to (overrides config)"`
	Port     int    `short:"p" long:"port" help:"Port to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	EventLog string `long:"event-log" help:"SQLite event log path (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.EventLog != "" {
		cfg.Server.EventLogPath = CLI.EventLog
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	case "silent":
		logger.SetOutput(io.Discard)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	srv, err := server.New(cfg, logger, quartz.NewReal())
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		kctx.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting feltd",
		"addr", cfg.ListenAddr(),
		"tables", len(cfg.Tables))

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server exited", "error", err)
		kctx.Exit(1)
	}
	logger.Info("Shutdown complete")
}
