// Package storage watches database utilization against a configured quota
// and opportunistically backs records up to a linked remote drive when the
// backup threshold is crossed.
package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/medhist/medhist/internal/platform/drive"
	"github.com/medhist/medhist/internal/platform/telemetry"
)

// BackupThresholdPct is the utilization percentage at or above which a
// backup becomes due.
const BackupThresholdPct = 80.0

// StatsStore reports record count and database size.
type StatsStore interface {
	CountRecords(ctx context.Context) (int64, error)
	SizeBytes(ctx context.Context) (int64, error)
}

// EventLog is the append-only backup history.
type EventLog interface {
	Append(ctx context.Context, ev *BackupEvent) error
	List(ctx context.Context, limit int) ([]BackupEvent, error)
}

// RemoteLink reports whether an upload destination is connected.
type RemoteLink interface {
	Status(ctx context.Context) (drive.LinkStatus, error)
}

// Transport uploads a backup payload. *drive.Client satisfies both
// RemoteLink and Transport.
type Transport interface {
	Upload(ctx context.Context, filename string, payload []byte) (drive.UploadResult, error)
}

// SnapshotSource produces the payload a backup uploads.
type SnapshotSource interface {
	ExportJSON(ctx context.Context) ([]byte, error)
}

// Guard evaluates storage utilization and runs best-effort backups.
type Guard struct {
	stats     StatsStore
	events    EventLog
	link      RemoteLink
	transport Transport
	source    SnapshotSource
	quota     int64
	metrics   *telemetry.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

func NewGuard(stats StatsStore, events EventLog, link RemoteLink, transport Transport, source SnapshotSource, quotaBytes int64, metrics *telemetry.Metrics, log zerolog.Logger) *Guard {
	return &Guard{
		stats:     stats,
		events:    events,
		link:      link,
		transport: transport,
		source:    source,
		quota:     quotaBytes,
		metrics:   metrics,
		log:       log.With().Str("component", "storage").Logger(),
		now:       time.Now,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Evaluate computes the current utilization snapshot.
func (g *Guard) Evaluate(ctx context.Context) (Snapshot, error) {
	count, err := g.stats.CountRecords(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting records: %w", err)
	}
	bytes, err := g.stats.SizeBytes(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading database size: %w", err)
	}
	pct := round2(float64(bytes) / float64(g.quota) * 100)
	snap := Snapshot{
		RecordCount:    count,
		BytesUsed:      bytes,
		QuotaBytes:     g.quota,
		UtilizationPct: pct,
		NeedsBackup:    pct >= BackupThresholdPct,
	}
	if g.metrics != nil {
		g.metrics.StorageUtilization.Set(pct)
	}
	return snap, nil
}

// MaybeBackup runs a backup if utilization warrants one and a remote link
// is connected. The returned Result always describes what happened; the
// error carries the underlying cause for failed attempts and is safe for
// callers to log and discard.
func (g *Guard) MaybeBackup(ctx context.Context) (Result, error) {
	snap, err := g.Evaluate(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Detail: err.Error()}, err
	}
	if !snap.NeedsBackup {
		return Result{Outcome: OutcomeSkippedThreshold}, nil
	}
	st, err := g.link.Status(ctx)
	if err != nil || !st.Connected {
		return Result{Outcome: OutcomeSkippedNoLink}, nil
	}
	return g.runBackup(ctx, SyncTypeAuto)
}

// Backup runs an unconditional backup, regardless of utilization. Used by
// the manual backup endpoint. It still requires a connected link.
func (g *Guard) Backup(ctx context.Context) (Result, error) {
	st, err := g.link.Status(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Detail: err.Error()}, err
	}
	if !st.Connected {
		return Result{Outcome: OutcomeSkippedNoLink}, nil
	}
	return g.runBackup(ctx, SyncTypeManual)
}

func (g *Guard) runBackup(ctx context.Context, syncType string) (Result, error) {
	payload, err := g.source.ExportJSON(ctx)
	if err != nil {
		err = fmt.Errorf("exporting backup payload: %w", err)
		g.record(ctx, OutcomeFailed, syncType, "", 0, "", err.Error())
		return Result{Outcome: OutcomeFailed, Detail: err.Error()}, err
	}
	filename := fmt.Sprintf("medhist-backup-%s.json", g.now().UTC().Format("20060102-150405"))

	res, err := g.transport.Upload(ctx, filename, payload)
	if err != nil {
		g.record(ctx, OutcomeFailed, syncType, filename, int64(len(payload)), "", err.Error())
		return Result{Outcome: OutcomeFailed, FileName: filename, Detail: err.Error()}, err
	}

	g.record(ctx, OutcomeSucceeded, syncType, filename, res.Size, res.RemoteID, "")
	g.log.Info().Str("file", filename).Str("remote_id", res.RemoteID).Msg("backup completed")
	return Result{Outcome: OutcomeSucceeded, RemoteID: res.RemoteID, FileName: filename}, nil
}

// record appends a backup event and bumps metrics. Event-log failures are
// logged, never propagated.
func (g *Guard) record(ctx context.Context, outcome Outcome, syncType, filename string, size int64, remoteID, detail string) {
	if g.metrics != nil {
		g.metrics.BackupAttempts.WithLabelValues(string(outcome)).Inc()
	}
	ev := &BackupEvent{
		SyncType:    syncType,
		FileName:    filename,
		FileSize:    size,
		DriveFileID: remoteID,
		Status:      string(outcome),
		Error:       detail,
		SyncedAt:    g.now().UTC(),
	}
	if err := g.events.Append(ctx, ev); err != nil {
		g.log.Error().Err(err).Msg("failed to append backup event")
	}
}

// History returns the most recent backup events, newest first.
func (g *Guard) History(ctx context.Context, limit int) ([]BackupEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return g.events.List(ctx, limit)
}
