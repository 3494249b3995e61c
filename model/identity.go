// api/model/identity.go
package model

import "time"

// Identity is the resolved caller identity threaded explicitly into the
// workflow and catalog services. It is built by the identity bridge from a
// verified bearer token, never read back out of global state.
type Identity struct {
	UserID         string `json:"user_id"`
	InstallationID string `json:"installation_id"`
	OrgAdmin       bool   `json:"org_admin"`
}

// InstallationCredential is a short-lived token scoped to one
// organization's app installation. Transient: held in memory only and never
// served past ExpiresAt.
type InstallationCredential struct {
	InstallationID string    `json:"installation_id"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the credential is unusable at instant now, given
// a safety margin so a token is never handed out mid-flight of expiring.
func (c InstallationCredential) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(c.ExpiresAt)
}
