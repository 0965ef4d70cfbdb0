package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/config"
	"github.com/marmos91/dittorepo/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const usage = `DittoRepo - per-user file repositories on object storage

Usage:
  dittorepo <command> [flags]

Commands:
  init     Write a default configuration file
  start    Start the API server
  version  Print the version

Run 'dittorepo <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "version":
		fmt.Println("dittorepo", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("dittorepo %s: %v", os.Args[1], err)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path of the config file to write (default: $XDG_CONFIG_HOME/dittorepo/config.yaml)")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Edit it, then run: dittorepo start --config", path)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the config file (default: $XDG_CONFIG_HOME/dittorepo/config.yaml)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := config.ConfigureLogging(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("DittoRepo %s starting (store=%s, identity=%s)", version, cfg.Store.Type, cfg.Identity.Type)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsResult := config.InitializeMetrics(cfg)

	services, err := config.InitializeServices(ctx, cfg, metricsResult)
	if err != nil {
		return err
	}

	srv := server.New(services, cfg.Server.ShutdownTimeout)
	for _, a := range config.CreateAdapters(cfg, services, metricsResult) {
		if err := srv.AddAdapter(a); err != nil {
			_ = services.Close()
			return err
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
