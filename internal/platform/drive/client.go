package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Config carries the OAuth application settings and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides; defaults apply when empty.
	AuthURL   string
	TokenURL  string
	UploadURL string
}

// Client implements the drive link: consent URL generation, code exchange,
// token refresh, status reporting and backup upload.
type Client struct {
	cfg   Config
	store CredentialStore
	http  *resty.Client
	log   zerolog.Logger
	now   func() time.Time
}

func NewClient(cfg Config, store CredentialStore, log zerolog.Logger) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	return &Client{
		cfg:   cfg,
		store: store,
		http:  resty.New().SetTimeout(30 * time.Second),
		log:   log.With().Str("component", "drive").Logger(),
		now:   time.Now,
	}
}

// Configured reports whether OAuth application settings are present.
func (c *Client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// AuthURL builds the consent URL the operator visits to link a drive account.
func (c *Client) AuthURL(state string) (string, error) {
	if !c.Configured() {
		return "", &AuthError{Reason: "drive client not configured"}
	}
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", DefaultScope)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	if state != "" {
		q.Set("state", state)
	}
	return c.cfg.AuthURL + "?" + q.Encode(), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Exchange swaps an authorization code for tokens and stores them.
func (c *Client) Exchange(ctx context.Context, code string) error {
	if !c.Configured() {
		return &AuthError{Reason: "drive client not configured"}
	}
	tok, err := c.tokenRequest(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"redirect_uri":  c.cfg.RedirectURL,
	})
	if err != nil {
		return err
	}
	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       tok.Scope,
		UpdatedAt:    c.now().UTC(),
	}
	if tok.ExpiresIn > 0 {
		exp := c.now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
		creds.Expiry = &exp
	}
	if err := c.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("saving drive credentials: %w", err)
	}
	c.log.Info().Msg("drive account linked")
	return nil
}

// Status reports whether a usable link exists. Absent credentials are not
// an error: the link is simply disconnected.
func (c *Client) Status(ctx context.Context) (LinkStatus, error) {
	creds, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return LinkStatus{Connected: false}, nil
	}
	if err != nil {
		return LinkStatus{}, err
	}
	connected := creds.RefreshToken != "" || (creds.AccessToken != "" && creds.Expiry != nil && creds.Expiry.After(c.now()))
	return LinkStatus{Connected: connected, Expiry: creds.Expiry}, nil
}

// Unlink removes stored credentials.
func (c *Client) Unlink(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Upload sends a backup payload as a multipart drive upload and returns
// the remote file id.
func (c *Client) Upload(ctx context.Context, filename string, payload []byte) (UploadResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return UploadResult{}, err
	}

	meta, _ := json.Marshal(map[string]string{"name": filename})
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("uploadType", "multipart").
		SetMultipartField("metadata", "", "application/json", strings.NewReader(string(meta))).
		SetMultipartField("media", filename, "application/octet-stream", strings.NewReader(string(payload))).
		Post(c.cfg.UploadURL)
	if err != nil {
		return UploadResult{}, &TransportError{Reason: err.Error()}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return UploadResult{}, &AuthError{Reason: fmt.Sprintf("upload rejected with status %d", resp.StatusCode())}
	}
	if resp.IsError() {
		return UploadResult{}, &TransportError{StatusCode: resp.StatusCode(), Reason: string(resp.Body())}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return UploadResult{}, &TransportError{Reason: "malformed upload response"}
	}
	c.log.Info().Str("remote_id", out.ID).Int("bytes", len(payload)).Msg("backup uploaded")
	return UploadResult{RemoteID: out.ID, Size: int64(len(payload))}, nil
}

// accessToken returns a valid access token, refreshing when expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	creds, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return "", &AuthError{Reason: "no drive link"}
	}
	if err != nil {
		return "", err
	}
	if creds.AccessToken != "" && (creds.Expiry == nil || creds.Expiry.After(c.now().Add(30*time.Second))) {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		return "", &AuthError{Reason: "access token expired and no refresh token"}
	}
	tok, err := c.tokenRequest(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": creds.RefreshToken,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	})
	if err != nil {
		return "", err
	}
	creds.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		creds.RefreshToken = tok.RefreshToken
	}
	creds.UpdatedAt = c.now().UTC()
	if tok.ExpiresIn > 0 {
		exp := c.now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
		creds.Expiry = &exp
	}
	if err := c.store.Save(ctx, creds); err != nil {
		return "", fmt.Errorf("saving refreshed credentials: %w", err)
	}
	return creds.AccessToken, nil
}

func (c *Client) tokenRequest(ctx context.Context, form map[string]string) (*tokenResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.cfg.TokenURL)
	if err != nil {
		return nil, &TransportError{Reason: err.Error()}
	}
	if resp.IsError() {
		return nil, &AuthError{Reason: fmt.Sprintf("token endpoint returned %d", resp.StatusCode())}
	}
	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, &AuthError{Reason: "malformed token response"}
	}
	if tok.AccessToken == "" {
		return nil, &AuthError{Reason: "token response missing access_token"}
	}
	return &tok, nil
}
