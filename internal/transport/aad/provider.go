// Package aad acquires and caches bearer tokens for the analytics backend
// via Microsoft Entra ID, supporting client-credential and device-code flows.
package aad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

// Mode selects the token acquisition flow.
type Mode string

const (
	// ModeClientCredentials is the non-interactive app-secret flow.
	ModeClientCredentials Mode = "client_credentials"
	// ModeDeviceCode is the interactive flow: the user enters a code in a browser.
	ModeDeviceCode Mode = "device_code"
)

// defaultAuthority is the Entra ID login host.
const defaultAuthority = "https://login.microsoftonline.com"

// expirySkew is how long before actual expiry a token is treated as stale,
// so in-flight requests never race the expiry boundary.
const expirySkew = 2 * time.Minute

// Config holds the identity provider settings.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Mode         Mode
	Scopes       []string
	Authority    string // override for tests; defaults to the Entra ID host
	Logger       *zap.Logger
}

// Provider yields bearer tokens on demand, caching the current token until
// it nears expiry. Safe for concurrent use.
type Provider struct {
	mode   Mode
	cc     *clientcredentials.Config
	device *oauth2.Config
	logger *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// Status is the authentication state report.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	Mode          string    `json:"mode"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
}

// New creates a token provider for the configured flow.
func New(cfg *Config) (*Provider, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("aad: tenant_id and client_id are required")
	}

	authority := cfg.Authority
	if authority == "" {
		authority = defaultAuthority
	}
	base := fmt.Sprintf("%s/%s/oauth2/v2.0", authority, cfg.TenantID)

	p := &Provider{mode: cfg.Mode, logger: cfg.Logger}
	switch cfg.Mode {
	case ModeClientCredentials:
		if cfg.ClientSecret == "" {
			return nil, fmt.Errorf("aad: client_secret is required for the client_credentials flow")
		}
		p.cc = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + "/token",
			Scopes:       cfg.Scopes,
		}
	case ModeDeviceCode:
		p.device = &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       base + "/authorize",
				TokenURL:      base + "/token",
				DeviceAuthURL: base + "/devicecode",
			},
		}
	default:
		return nil, fmt.Errorf("aad: unknown auth mode %q", cfg.Mode)
	}

	return p, nil
}

// Token returns a live bearer token, acquiring or re-acquiring one when the
// cached token is absent or nearing expiry.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() && time.Until(p.token.Expiry) > expirySkew {
		return p.token.AccessToken, nil
	}

	token, err := p.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrAuthFailed)
	}

	p.token = token
	p.logger.Info("Acquired access token",
		zap.String("mode", string(p.mode)),
		zap.Time("expires_at", token.Expiry),
	)
	return token.AccessToken, nil
}

// Refresh drops the cached token and forces re-authentication on the spot.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()

	_, err := p.Token(ctx)
	return err
}

// Status reports the current authentication state without triggering a flow.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Mode: string(p.mode)}
	if p.token.Valid() {
		s.Authenticated = true
		s.ExpiresAt = p.token.Expiry
	}
	return s
}

func (p *Provider) acquire(ctx context.Context) (*oauth2.Token, error) {
	switch p.mode {
	case ModeClientCredentials:
		token, err := p.cc.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("client credentials token: %w", err)
		}
		return token, nil
	case ModeDeviceCode:
		return p.deviceFlow(ctx)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", p.mode)
	}
}

// deviceFlow runs the interactive device-code flow, surfacing the user code
// on the log (stderr) since stdout may carry the MCP stream.
func (p *Provider) deviceFlow(ctx context.Context) (*oauth2.Token, error) {
	auth, err := p.device.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request: %w", err)
	}

	p.logger.Warn("Interactive sign-in required",
		zap.String("verification_uri", auth.VerificationURI),
		zap.String("user_code", auth.UserCode),
	)

	token, err := p.device.DeviceAccessToken(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("device access token: %w", err)
	}
	return token, nil
}
