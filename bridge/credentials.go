// api/bridge/credentials.go
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

type exchangeResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InstallationCredential returns a cached, unexpired credential for the
// installation, or performs a single upstream exchange. Concurrent callers
// for the same installation coalesce onto one exchange call and all receive
// its result. The cache check applies the refresh margin so a token is
// never served when it would expire mid-flight.
func (b *Bridge) InstallationCredential(ctx context.Context, installationID string) (model.InstallationCredential, error) {
	if cred, ok := b.cached(installationID); ok {
		return cred, nil
	}

	result, err, _ := b.group.Do(installationID, func() (interface{}, error) {
		// A racer may have filled the cache between the miss and the flight.
		if cred, ok := b.cached(installationID); ok {
			return cred, nil
		}

		cred, err := b.exchange(ctx, installationID)
		if err != nil {
			return model.InstallationCredential{}, err
		}

		b.mu.Lock()
		b.creds[installationID] = cred
		b.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return model.InstallationCredential{}, err
	}
	return result.(model.InstallationCredential), nil
}

func (b *Bridge) cached(installationID string) (model.InstallationCredential, bool) {
	b.mu.RLock()
	cred, ok := b.creds[installationID]
	b.mu.RUnlock()
	if !ok || cred.Expired(b.now(), b.refreshMargin) {
		return model.InstallationCredential{}, false
	}
	return cred, true
}

// exchange performs the upstream token exchange. The call is detached from
// the first caller's cancellation (every coalesced waiter shares its
// outcome) but bounded by the configured timeout so it can never hang.
func (b *Bridge) exchange(ctx context.Context, installationID string) (model.InstallationCredential, error) {
	exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.exchangeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/access_tokens", b.exchangeURL, installationID)
	req, err := http.NewRequestWithContext(exchangeCtx, http.MethodPost, url, nil)
	if err != nil {
		return model.InstallationCredential{}, fmt.Errorf("%w: %v", aegis_errors.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		logger.Error("Installation credential exchange failed",
			zap.Error(err),
			zap.String("installationID", installationID))
		return model.InstallationCredential{}, fmt.Errorf("%w: %v", aegis_errors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		logger.Error("Installation credential exchange returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("installationID", installationID))
		return model.InstallationCredential{}, fmt.Errorf("%w: status %d", aegis_errors.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.InstallationCredential{}, fmt.Errorf("%w: %v", aegis_errors.ErrUpstreamUnavailable, err)
	}
	if payload.Token == "" {
		return model.InstallationCredential{}, fmt.Errorf("%w: empty token in exchange response", aegis_errors.ErrUpstreamUnavailable)
	}

	logger.Info("Installation credential exchanged",
		zap.String("installationID", installationID),
		zap.Time("expiresAt", payload.ExpiresAt))

	return model.InstallationCredential{
		InstallationID: installationID,
		Token:          payload.Token,
		ExpiresAt:      payload.ExpiresAt,
	}, nil
}
