// Command tui is the terminal client for the todolist server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"todolist/internal/client"
	"todolist/internal/ui"
)

func main() {
	configPath := flag.String("config", client.DefaultConfigFile, "path to the TOML settings file")
	server := flag.String("server", "", "server base URL (overrides config)")
	user := flag.String("user", "", "username to prefill (overrides config)")
	flag.Parse()

	cfg, err := client.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *user != "" {
		cfg.Username = *user
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.ServerURL, cfg.Timeout)
	if err := ui.Run(ctx, ui.New(api, cfg.Username, cfg.Timeout)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
