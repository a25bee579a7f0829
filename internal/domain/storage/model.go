package storage

import "time"

// Snapshot is a point-in-time view of storage utilization.
type Snapshot struct {
	RecordCount    int64   `json:"record_count"`
	BytesUsed      int64   `json:"bytes_used"`
	QuotaBytes     int64   `json:"quota_bytes"`
	UtilizationPct float64 `json:"utilization_pct"`
	NeedsBackup    bool    `json:"needs_backup"`
}

// Outcome classifies one backup attempt.
type Outcome string

const (
	// OutcomeSkippedThreshold: utilization below the backup threshold.
	OutcomeSkippedThreshold Outcome = "skipped_below_threshold"
	// OutcomeSkippedNoLink: no connected remote drive link.
	OutcomeSkippedNoLink Outcome = "skipped_no_remote_link"
	// OutcomeSucceeded: a backup archive was uploaded.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed: an upload was attempted and failed.
	OutcomeFailed Outcome = "failed"
)

// Result reports what a backup attempt did. Failures surface here and in
// the event log; they never propagate to the write that triggered them.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	RemoteID string  `json:"remote_id,omitempty"`
	FileName string  `json:"file_name,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// BackupEvent is one appended entry in the backup history.
type BackupEvent struct {
	ID          int64     `json:"id"`
	SyncType    string    `json:"sync_type"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	DriveFileID string    `json:"drive_file_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	SyncedAt    time.Time `json:"synced_at"`
}

// Sync types recorded in the event log.
const (
	SyncTypeAuto   = "auto"
	SyncTypeManual = "manual"
)
