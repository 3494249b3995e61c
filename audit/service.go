// api/audit/service.go
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/aegisgov/aegis/api/logging"
)

// Ledger is the append-only event store every other component writes
// through. Writes are best-effort: the Result tells the caller whether the
// entry landed, and dropped writes are counted for alerting.
type Ledger interface {
	LogEvent(ctx context.Context, entry Entry) Result
	LogPolicyViolation(ctx context.Context, userID, organizationID, resourceType, resourceID, policyName, reason string) Result
	LogResourceAccess(ctx context.Context, userID, organizationID, resourceType, resourceID, accessType string) Result
	History(ctx context.Context, organizationID, resourceID string) ([]Entry, error)
	QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]Entry, error)
	Dropped() int64
}

type ledger struct {
	repo         Repository
	writeTimeout time.Duration
	dropped      atomic.Int64
}

func NewLedger(repo Repository, writeTimeout time.Duration) Ledger {
	return &ledger{repo: repo, writeTimeout: writeTimeout}
}

// LogEvent appends one entry. The write runs detached from the caller's
// cancellation: once the governed transition has committed, the entry is
// attempted regardless of whether the inbound request is still alive, but
// never for longer than the configured write timeout.
func (l *ledger) LogEvent(ctx context.Context, entry Entry) Result {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	if err := l.repo.Append(writeCtx, entry); err != nil {
		l.dropped.Add(1)
		logger.Error("Audit write dropped",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("resourceID", entry.ResourceID),
			zap.Int64("totalDropped", l.dropped.Load()))
		return Result{Logged: false, Reason: err}
	}

	return Result{Logged: true}
}

// LogPolicyViolation records a detected governance rule breach as a
// first-class audited event.
func (l *ledger) LogPolicyViolation(ctx context.Context, userID, organizationID, resourceType, resourceID, policyName, reason string) Result {
	return l.LogEvent(ctx, Entry{
		UserID:         &userID,
		OrganizationID: organizationID,
		Action:         ActionPolicyViolated,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Details: map[string]interface{}{
			"policy":      policyName,
			"reason":      reason,
			"occurred_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// LogResourceAccess records a read or use of a governed resource.
func (l *ledger) LogResourceAccess(ctx context.Context, userID, organizationID, resourceType, resourceID, accessType string) Result {
	return l.LogEvent(ctx, Entry{
		UserID:         &userID,
		OrganizationID: organizationID,
		Action:         ActionResourceAccessed,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Details: map[string]interface{}{
			"access_type": accessType,
			"occurred_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// History returns the per-resource trail in causal (created_at ascending)
// order. Lazy, finite, restartable: it never mutates ledger state.
func (l *ledger) History(ctx context.Context, organizationID, resourceID string) ([]Entry, error) {
	return l.repo.QueryByResource(ctx, organizationID, resourceID)
}

func (l *ledger) QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]Entry, error) {
	return l.repo.QueryLogs(ctx, from, to, userID, resourceID)
}

// Dropped reports how many writes have been lost since startup. Exposed so
// the operational layer can alert on audit gaps.
func (l *ledger) Dropped() int64 {
	return l.dropped.Load()
}
