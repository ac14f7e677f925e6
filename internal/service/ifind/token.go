package ifind

import (
	"context"
	"sync"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
)

// The vendor issues access tokens valid for 7 days; keep a one-day margin so
// a token is never used right at the edge of its window.
const accessTokenTTL = 6 * 24 * time.Hour

// TokenManager owns the refresh->access token exchange and its cached
// validity window. The credential lives in memory only and is discarded at
// process exit.
type TokenManager struct {
	baseURL      string
	refreshToken string
	client       *xhttp.Client
	log          *xlogger.Logger

	mu   sync.Mutex
	cred models.Credential
}

func NewTokenManager(baseURL, refreshToken string, client *xhttp.Client, log *xlogger.Logger) *TokenManager {
	return &TokenManager{
		baseURL:      baseURL,
		refreshToken: refreshToken,
		client:       client,
		log:          log,
	}
}

type tokenResponse struct {
	ErrorCode int    `json:"errorcode"`
	ErrMsg    string `json:"errmsg"`
	Data      struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// EnsureValid returns the cached credential while it is unexpired, otherwise
// performs one exchange call and replaces it. A rejected refresh token is an
// AuthError and is never retried.
func (m *TokenManager) EnsureValid(ctx context.Context) (models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred.Valid(time.Now()) {
		return m.cred, nil
	}

	var resp tokenResponse
	err := m.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    m.baseURL + "/get_access_token",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"refresh_token": m.refreshToken,
		},
	}, &resp)
	if err != nil {
		return models.Credential{}, &TransportError{Endpoint: "get_access_token", Err: err}
	}
	if resp.ErrorCode != 0 {
		return models.Credential{}, &AuthError{Msg: resp.ErrMsg}
	}

	m.cred = models.Credential{
		AccessToken: resp.Data.AccessToken,
		IssuedAt:    time.Now(),
		TTL:         accessTokenTTL,
	}
	m.log.Info("access token exchanged",
		xlogger.String("valid_until", m.cred.IssuedAt.Add(m.cred.TTL).Format(time.RFC3339)))
	return m.cred, nil
}

// Invalidate drops the cached credential so the next EnsureValid exchanges.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cred = models.Credential{}
	m.mu.Unlock()
}
