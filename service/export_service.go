package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"guildbank/models"
)

type exportService struct {
	reader SnapshotReader
}

// NewExportService creates a new export service
func NewExportService(reader SnapshotReader) ExportService {
	return &exportService{reader: reader}
}

func (s *exportService) Snapshot(ctx context.Context, guildID int64) (*models.Snapshot, error) {
	snapshot, err := s.reader.ReadSnapshot(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if snapshot.Pool == nil {
		return nil, fmt.Errorf("%w: community %d is not registered", ErrNotFound, guildID)
	}
	return snapshot, nil
}

var snapshotHeader = []string{
	"discord_id", "balance", "gold", "wood", "food", "stone",
	"daily_streak", "last_daily_claim", "messages", "voice_minutes", "goods",
}

// WriteSnapshotCSV writes one row per account followed by a pool row
func WriteSnapshotCSV(w io.Writer, snapshot *models.Snapshot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range snapshot.Accounts {
		a := row.Account
		lastClaim := ""
		if a.LastDailyClaim != nil {
			lastClaim = a.LastDailyClaim.UTC().Format(time.DateOnly)
		}
		record := []string{
			strconv.FormatInt(a.DiscordID, 10),
			strconv.FormatInt(a.Balance, 10),
			strconv.FormatInt(a.Gold, 10),
			strconv.FormatInt(a.Wood, 10),
			strconv.FormatInt(a.Food, 10),
			strconv.FormatInt(a.Stone, 10),
			strconv.Itoa(a.DailyStreak),
			lastClaim,
			strconv.FormatInt(row.MessageCount, 10),
			strconv.FormatInt(row.VoiceMinutes, 10),
			strconv.FormatInt(row.GoodsOwned, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write account %d: %w", a.DiscordID, err)
		}
	}

	var poolBalance int64
	if snapshot.Pool != nil {
		poolBalance = snapshot.Pool.Balance
	}
	summary := []string{"pool", strconv.FormatInt(poolBalance, 10), "", "", "", "", "", "", "", "", ""}
	escrow := []string{"open_escrow", strconv.FormatInt(snapshot.OpenEscrow, 10), "", "", "", "", "", "", "", "", ""}
	if err := cw.WriteAll([][]string{summary, escrow}); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
