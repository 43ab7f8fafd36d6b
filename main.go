package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"guildbank/cmd"
	"guildbank/config"
	"guildbank/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := database.RunMigrationCommand(config.Get().GetDatabaseURL(), os.Args[2:]); err != nil {
				log.Fatalf("Migration error: %v", err)
			}
			return
		case "export":
			if err := handleExportCommand(); err != nil {
				log.Fatalf("Export error: %v", err)
			}
			return
		}
	}

	// Normal bot operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func handleExportCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: guildbank export <guild_id>")
	}
	guildID, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid guild ID %q: %w", os.Args[2], err)
	}
	return cmd.Export(context.Background(), guildID, os.Stdout)
}
