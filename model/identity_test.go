// api/model/identity_test.go
package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aegisgov/aegis/api/model"
)

func TestInstallationCredentialExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	margin := 5 * time.Minute

	t.Run("FreshCredential", func(t *testing.T) {
		cred := model.InstallationCredential{ExpiresAt: now.Add(time.Hour)}
		assert.False(t, cred.Expired(now, margin))
	})

	t.Run("ExpiringWithinMargin", func(t *testing.T) {
		cred := model.InstallationCredential{ExpiresAt: now.Add(2 * time.Minute)}
		assert.True(t, cred.Expired(now, margin))
	})

	t.Run("AlreadyExpired", func(t *testing.T) {
		cred := model.InstallationCredential{ExpiresAt: now.Add(-time.Minute)}
		assert.True(t, cred.Expired(now, margin))
	})
}
