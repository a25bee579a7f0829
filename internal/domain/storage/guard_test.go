package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medhist/medhist/internal/platform/drive"
)

type mockStats struct {
	count int64
	bytes int64
	err   error
}

func (m *mockStats) CountRecords(ctx context.Context) (int64, error) { return m.count, m.err }
func (m *mockStats) SizeBytes(ctx context.Context) (int64, error)    { return m.bytes, m.err }

type mockEvents struct {
	appended []BackupEvent
}

func (m *mockEvents) Append(ctx context.Context, ev *BackupEvent) error {
	m.appended = append(m.appended, *ev)
	return nil
}

func (m *mockEvents) List(ctx context.Context, limit int) ([]BackupEvent, error) {
	if limit > len(m.appended) {
		limit = len(m.appended)
	}
	return m.appended[:limit], nil
}

type mockLink struct {
	connected bool
	err       error
}

func (m *mockLink) Status(ctx context.Context) (drive.LinkStatus, error) {
	return drive.LinkStatus{Connected: m.connected}, m.err
}

type mockTransport struct {
	calls  int
	err    error
	result drive.UploadResult
}

func (m *mockTransport) Upload(ctx context.Context, filename string, payload []byte) (drive.UploadResult, error) {
	m.calls++
	if m.err != nil {
		return drive.UploadResult{}, m.err
	}
	m.result.Size = int64(len(payload))
	return m.result, nil
}

type mockSource struct {
	payload []byte
	err     error
}

func (m *mockSource) ExportJSON(ctx context.Context) ([]byte, error) { return m.payload, m.err }

const mib = 1024 * 1024

func newGuard(stats *mockStats, events *mockEvents, link *mockLink, tr *mockTransport, src *mockSource) *Guard {
	return NewGuard(stats, events, link, tr, src, 50*mib, nil, zerolog.Nop())
}

func TestEvaluateUtilization(t *testing.T) {
	cases := []struct {
		name    string
		bytes   int64
		wantPct float64
		wantDue bool
	}{
		{"well below threshold", 10 * mib, 20.0, false},
		{"just under threshold", 39999999, 76.29, false},
		{"exactly at threshold", 40 * mib, 80.0, true},
		{"above threshold", 45 * mib, 90.0, true},
		{"empty database", 0, 0.0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := newGuard(&mockStats{count: 7, bytes: c.bytes}, &mockEvents{}, &mockLink{}, &mockTransport{}, &mockSource{})
			snap, err := g.Evaluate(context.Background())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if snap.UtilizationPct != c.wantPct {
				t.Errorf("UtilizationPct = %v, want %v", snap.UtilizationPct, c.wantPct)
			}
			if snap.NeedsBackup != c.wantDue {
				t.Errorf("NeedsBackup = %v, want %v", snap.NeedsBackup, c.wantDue)
			}
			if snap.RecordCount != 7 {
				t.Errorf("RecordCount = %d", snap.RecordCount)
			}
		})
	}
}

func TestEvaluateRoundsToTwoDecimals(t *testing.T) {
	// 12345678 / 52428800 * 100 = 23.5467...
	g := newGuard(&mockStats{bytes: 12345678}, &mockEvents{}, &mockLink{}, &mockTransport{}, &mockSource{})
	snap, err := g.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if snap.UtilizationPct != 23.55 {
		t.Errorf("UtilizationPct = %v, want 23.55", snap.UtilizationPct)
	}
}

func TestMaybeBackupSkipsBelowThreshold(t *testing.T) {
	tr := &mockTransport{}
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 10 * mib}, ev, &mockLink{connected: true}, tr, &mockSource{payload: []byte("{}")})

	res, err := g.MaybeBackup(context.Background())
	if err != nil {
		t.Fatalf("MaybeBackup: %v", err)
	}
	if res.Outcome != OutcomeSkippedThreshold {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if tr.calls != 0 {
		t.Error("expected no upload attempt")
	}
	if len(ev.appended) != 0 {
		t.Error("skip must not append an event")
	}
}

func TestMaybeBackupSkipsWithoutLink(t *testing.T) {
	tr := &mockTransport{}
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 45 * mib}, ev, &mockLink{connected: false}, tr, &mockSource{payload: []byte("{}")})

	res, err := g.MaybeBackup(context.Background())
	if err != nil {
		t.Fatalf("MaybeBackup: %v", err)
	}
	if res.Outcome != OutcomeSkippedNoLink {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if tr.calls != 0 {
		t.Error("expected no upload attempt")
	}
	if len(ev.appended) != 0 {
		t.Error("skip must not append an event")
	}
}

func TestMaybeBackupUploadsWhenDue(t *testing.T) {
	tr := &mockTransport{result: drive.UploadResult{RemoteID: "remote-1"}}
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 45 * mib}, ev, &mockLink{connected: true}, tr, &mockSource{payload: []byte(`{"records":[]}`)})

	res, err := g.MaybeBackup(context.Background())
	if err != nil {
		t.Fatalf("MaybeBackup: %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Fatalf("Outcome = %q", res.Outcome)
	}
	if res.RemoteID != "remote-1" {
		t.Errorf("RemoteID = %q", res.RemoteID)
	}
	if len(ev.appended) != 1 {
		t.Fatalf("events appended = %d", len(ev.appended))
	}
	got := ev.appended[0]
	if got.Status != string(OutcomeSucceeded) || got.SyncType != SyncTypeAuto || got.DriveFileID != "remote-1" {
		t.Errorf("event = %+v", got)
	}
}

func TestMaybeBackupRecordsUploadFailure(t *testing.T) {
	tr := &mockTransport{err: errors.New("network down")}
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 45 * mib}, ev, &mockLink{connected: true}, tr, &mockSource{payload: []byte("{}")})

	res, err := g.MaybeBackup(context.Background())
	if err == nil {
		t.Fatal("expected error for failed upload")
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if len(ev.appended) != 1 {
		t.Fatalf("events appended = %d", len(ev.appended))
	}
	if ev.appended[0].Status != string(OutcomeFailed) || ev.appended[0].Error == "" {
		t.Errorf("event = %+v", ev.appended[0])
	}
}

func TestMaybeBackupRecordsExportFailure(t *testing.T) {
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 45 * mib}, ev, &mockLink{connected: true}, &mockTransport{}, &mockSource{err: errors.New("export broke")})

	res, err := g.MaybeBackup(context.Background())
	if err == nil {
		t.Fatal("expected error for failed export")
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if len(ev.appended) != 1 {
		t.Fatalf("events appended = %d", len(ev.appended))
	}
}

func TestManualBackupIgnoresThreshold(t *testing.T) {
	tr := &mockTransport{result: drive.UploadResult{RemoteID: "m-1"}}
	ev := &mockEvents{}
	g := newGuard(&mockStats{bytes: 1 * mib}, ev, &mockLink{connected: true}, tr, &mockSource{payload: []byte("{}")})

	res, err := g.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if ev.appended[0].SyncType != SyncTypeManual {
		t.Errorf("SyncType = %q", ev.appended[0].SyncType)
	}
}

func TestManualBackupRequiresLink(t *testing.T) {
	g := newGuard(&mockStats{bytes: 45 * mib}, &mockEvents{}, &mockLink{connected: false}, &mockTransport{}, &mockSource{})
	res, err := g.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if res.Outcome != OutcomeSkippedNoLink {
		t.Errorf("Outcome = %q", res.Outcome)
	}
}
