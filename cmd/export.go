package cmd

import (
	"context"
	"fmt"
	"io"

	"guildbank/config"
	"guildbank/database"
	"guildbank/repository"
	"guildbank/service"
)

// Export writes a CSV snapshot of one guild's economy to w
func Export(ctx context.Context, guildID int64, w io.Writer) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	exporter := service.NewExportService(repository.NewSnapshotRepository(db))
	snapshot, err := exporter.Snapshot(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return service.WriteSnapshotCSV(w, snapshot)
}
