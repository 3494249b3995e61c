// test/mock/audit.go
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aegisgov/aegis/api/audit"
)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) QueryByResource(ctx context.Context, organizationID, resourceID string) ([]audit.Entry, error) {
	args := m.Called(ctx, organizationID, resourceID)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]audit.Entry, error) {
	args := m.Called(ctx, from, to, userID, resourceID)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

// RecordingLedger is an in-memory audit.Ledger double that captures every
// entry so tests can assert on what the workflow wrote.
type RecordingLedger struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    bool
	dropped int64
	seq     int
}

func NewRecordingLedger() *RecordingLedger {
	return &RecordingLedger{}
}

// FailWrites makes subsequent writes report failure, mimicking a degraded
// ledger backend.
func (l *RecordingLedger) FailWrites(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = fail
}

func (l *RecordingLedger) LogEvent(ctx context.Context, entry audit.Entry) audit.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		l.dropped++
		return audit.Result{Logged: false, Reason: context.DeadlineExceeded}
	}
	if entry.CreatedAt.IsZero() {
		// Strictly increasing timestamps keep causal order observable.
		l.seq++
		entry.CreatedAt = time.Unix(0, int64(l.seq))
	}
	l.entries = append(l.entries, entry)
	return audit.Result{Logged: true}
}

func (l *RecordingLedger) LogPolicyViolation(ctx context.Context, userID, organizationID, resourceType, resourceID, policyName, reason string) audit.Result {
	return l.LogEvent(ctx, audit.Entry{
		UserID:         &userID,
		OrganizationID: organizationID,
		Action:         audit.ActionPolicyViolated,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Details: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

func (l *RecordingLedger) LogResourceAccess(ctx context.Context, userID, organizationID, resourceType, resourceID, accessType string) audit.Result {
	return l.LogEvent(ctx, audit.Entry{
		UserID:         &userID,
		OrganizationID: organizationID,
		Action:         audit.ActionResourceAccessed,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Details: map[string]interface{}{
			"access_type": accessType,
		},
	})
}

func (l *RecordingLedger) History(ctx context.Context, organizationID, resourceID string) ([]audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []audit.Entry
	for _, entry := range l.entries {
		if entry.OrganizationID == organizationID && entry.ResourceID == resourceID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *RecordingLedger) QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []audit.Entry
	for _, entry := range l.entries {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		if resourceID != "" && entry.ResourceID != resourceID {
			continue
		}
		if userID != "" && (entry.UserID == nil || *entry.UserID != userID) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (l *RecordingLedger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Entries returns a copy of everything recorded so far.
func (l *RecordingLedger) Entries() []audit.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]audit.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesByAction returns the recorded entries with the given action.
func (l *RecordingLedger) EntriesByAction(action string) []audit.Entry {
	var out []audit.Entry
	for _, entry := range l.Entries() {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}
