// Package drive manages the remote cloud-drive link used for backups:
// credential persistence, OAuth consent/exchange/refresh, connection status,
// and upload of backup archives.
package drive

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default Google endpoints. Overridable for tests.
const (
	DefaultAuthURL   = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURL  = "https://oauth2.googleapis.com/token"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"
	DefaultScope     = "https://www.googleapis.com/auth/drive.file"
)

// Credentials holds the stored OAuth tokens for the drive link.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Scopes       string
	Expiry       *time.Time
	UpdatedAt    time.Time
}

// LinkStatus describes whether a usable remote link exists.
type LinkStatus struct {
	Connected bool       `json:"connected"`
	Expiry    *time.Time `json:"expiry,omitempty"`
}

// UploadResult identifies the uploaded remote object.
type UploadResult struct {
	RemoteID string `json:"remote_id"`
	Size     int64  `json:"size"`
}

// ErrNoCredentials is returned when no drive link has been established.
var ErrNoCredentials = errors.New("no drive credentials stored")

// AuthError indicates the stored credentials are invalid or expired and
// cannot be refreshed.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("drive auth: %s", e.Reason)
}

// TransportError indicates an upload attempt failed (network, quota,
// permission). It is recorded and swallowed at the backup boundary.
type TransportError struct {
	StatusCode int
	Reason     string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("drive upload: status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("drive upload: %s", e.Reason)
}

// CredentialStore persists the single credential row for the drive link.
type CredentialStore interface {
	Load(ctx context.Context) (*Credentials, error) // ErrNoCredentials when absent
	Save(ctx context.Context, creds *Credentials) error
	Clear(ctx context.Context) error
}
