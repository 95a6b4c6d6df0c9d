package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MicroPythonOS/shell/internal/infrastructure/config"
	"github.com/MicroPythonOS/shell/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment and file configuration.
	port := flag.String("port", cfg.Server.Port, "HTTP listen port")
	host := flag.String("host", cfg.Server.Host, "HTTP listen host")
	root := flag.String("root", cfg.Apps.Root, "Data root holding builtin/, apps/, prefs/ and tmp/")
	store := flag.String("store", cfg.Apps.StoreURL, "App store base URL (empty disables store installs)")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging (colored output, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Apps.Root = *root
	cfg.Apps.StoreURL = *store
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	log.Println(strings.Repeat("=", 62))
	log.Println("MicroPythonOS Shell")
	log.Println(strings.Repeat("=", 62))

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// SIGINT and SIGTERM cancel the run context; Run drains in-flight
	// requests before returning.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
	log.Println("Shutdown complete")
}
