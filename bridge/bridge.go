// api/bridge/bridge.go
package bridge

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
)

// Claims is the verified content of a caller's bearer token.
type Claims struct {
	jwt.RegisteredClaims
	InstallationID string `json:"installation_id"`
	OrgAdmin       bool   `json:"org_admin"`
}

// Bridge verifies caller identity tokens and exchanges them for short-lived
// upstream installation credentials. Credentials live only in memory; the
// bridge never persists a secret.
type Bridge struct {
	secret          []byte
	exchangeURL     string
	exchangeTimeout time.Duration
	refreshMargin   time.Duration
	httpClient      *http.Client

	group singleflight.Group
	mu    sync.RWMutex
	creds map[string]model.InstallationCredential

	now func() time.Time
}

func New(secret, exchangeURL string, exchangeTimeout, refreshMargin time.Duration) *Bridge {
	return &Bridge{
		secret:          []byte(secret),
		exchangeURL:     strings.TrimRight(exchangeURL, "/"),
		exchangeTimeout: exchangeTimeout,
		refreshMargin:   refreshMargin,
		httpClient:      &http.Client{},
		creds:           make(map[string]model.InstallationCredential),
		now:             time.Now,
	}
}

// Authenticate verifies the bearer token's signature and expiry and
// extracts the caller identity. Missing, malformed, or expired tokens all
// resolve to ErrUnauthorized; the caller learns nothing more specific.
func (b *Bridge) Authenticate(bearerToken string) (model.Identity, error) {
	tokenString := strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer"))
	if tokenString == "" {
		return model.Identity{}, aegis_errors.ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return b.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, aegis_errors.ErrUnauthorized
	}
	if claims.InstallationID == "" || claims.Subject == "" {
		return model.Identity{}, aegis_errors.ErrUnauthorized
	}

	return model.Identity{
		UserID:         claims.Subject,
		InstallationID: claims.InstallationID,
		OrgAdmin:       claims.OrgAdmin,
	}, nil
}
