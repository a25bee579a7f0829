package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhist/medhist/internal/platform/db"
)

// statsPG reads utilization inputs from Postgres.
type statsPG struct {
	pool *pgxpool.Pool
}

func NewStatsStorePG(pool *pgxpool.Pool) StatsStore {
	return &statsPG{pool: pool}
}

func (s *statsPG) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting patient records: %w", err)
	}
	return n, nil
}

func (s *statsPG) SizeBytes(ctx context.Context) (int64, error) {
	return db.SizeBytes(ctx, s.pool)
}

// eventLogPG appends to and reads from the sync_log table.
type eventLogPG struct {
	pool *pgxpool.Pool
}

func NewEventLogPG(pool *pgxpool.Pool) EventLog {
	return &eventLogPG{pool: pool}
}

func (l *eventLogPG) Append(ctx context.Context, ev *BackupEvent) error {
	err := l.pool.QueryRow(ctx, `
		INSERT INTO sync_log (sync_type, file_name, file_size, drive_file_id, status, error, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		ev.SyncType, ev.FileName, ev.FileSize, ev.DriveFileID, ev.Status, ev.Error, ev.SyncedAt).
		Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("appending sync log entry: %w", err)
	}
	return nil
}

func (l *eventLogPG) List(ctx context.Context, limit int) ([]BackupEvent, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, sync_type, file_name, file_size, drive_file_id, status, error, synced_at
		FROM sync_log ORDER BY synced_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync log: %w", err)
	}
	defer rows.Close()

	events := make([]BackupEvent, 0, limit)
	for rows.Next() {
		var ev BackupEvent
		if err := rows.Scan(&ev.ID, &ev.SyncType, &ev.FileName, &ev.FileSize, &ev.DriveFileID, &ev.Status, &ev.Error, &ev.SyncedAt); err != nil {
			return nil, fmt.Errorf("scanning sync log entry: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
