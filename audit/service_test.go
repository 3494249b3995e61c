// api/audit/service_test.go
package audit_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aegisgov/aegis/api/audit"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/test/mock"
)

func init() {
	logger.InitLogger(os.TempDir())
}

func TestLogEventFillsEntryAndReportsSuccess(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	ledger := audit.NewLedger(repo, time.Second)

	var captured audit.Entry
	repo.On("Append", tmock.Anything, tmock.AnythingOfType("audit.Entry")).
		Run(func(args tmock.Arguments) {
			captured = args.Get(1).(audit.Entry)
		}).
		Return(nil)

	userID := "alice"
	result := ledger.LogEvent(context.Background(), audit.Entry{
		UserID:         &userID,
		OrganizationID: "org-1",
		Action:         audit.ActionRequestCreated,
		ResourceType:   "access_request",
		ResourceID:     "req-1",
	})

	assert.True(t, result.Logged)
	assert.NoError(t, result.Reason)
	assert.NotEmpty(t, captured.ID)
	assert.False(t, captured.CreatedAt.IsZero())
	assert.NotNil(t, captured.Details)
	repo.AssertExpectations(t)
}

func TestLogEventFailureCountsDroppedWrites(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	ledger := audit.NewLedger(repo, time.Second)

	appendErr := errors.New("index unavailable")
	repo.On("Append", tmock.Anything, tmock.AnythingOfType("audit.Entry")).Return(appendErr)

	result := ledger.LogEvent(context.Background(), audit.Entry{
		OrganizationID: "org-1",
		Action:         audit.ActionRequestApproved,
		ResourceType:   "access_request",
		ResourceID:     "req-1",
	})

	assert.False(t, result.Logged)
	assert.ErrorIs(t, result.Reason, appendErr)
	assert.Equal(t, int64(1), ledger.Dropped())

	ledger.LogEvent(context.Background(), audit.Entry{Action: audit.ActionRequestRejected})
	assert.Equal(t, int64(2), ledger.Dropped())
}

func TestLogEventSurvivesCancelledCaller(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	ledger := audit.NewLedger(repo, time.Second)

	var writeCtxErr error
	repo.On("Append", tmock.Anything, tmock.AnythingOfType("audit.Entry")).
		Run(func(args tmock.Arguments) {
			writeCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(nil)

	// The governed transition has committed; the caller's request dying must
	// not take the audit write with it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ledger.LogEvent(ctx, audit.Entry{
		OrganizationID: "org-1",
		Action:         audit.ActionRequestCancelled,
		ResourceType:   "access_request",
		ResourceID:     "req-1",
	})

	assert.True(t, result.Logged)
	assert.NoError(t, writeCtxErr)
}

func TestLogPolicyViolationComposesDetails(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	ledger := audit.NewLedger(repo, time.Second)

	var captured audit.Entry
	repo.On("Append", tmock.Anything, tmock.AnythingOfType("audit.Entry")).
		Run(func(args tmock.Arguments) {
			captured = args.Get(1).(audit.Entry)
		}).
		Return(nil)

	result := ledger.LogPolicyViolation(context.Background(), "alice", "org-1", "repository", "req-1", "separation_of_duties", "requester may not approve their own access request")

	assert.True(t, result.Logged)
	assert.Equal(t, audit.ActionPolicyViolated, captured.Action)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, "alice", *captured.UserID)
	assert.Equal(t, "separation_of_duties", captured.Details["policy"])
	assert.Equal(t, "requester may not approve their own access request", captured.Details["reason"])
}

func TestHistoryDelegatesToRepository(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	ledger := audit.NewLedger(repo, time.Second)

	entries := []audit.Entry{
		{ID: "e1", Action: audit.ActionRequestCreated, ResourceID: "req-1"},
		{ID: "e2", Action: audit.ActionRequestApproved, ResourceID: "req-1"},
	}
	repo.On("QueryByResource", tmock.Anything, "org-1", "req-1").Return(entries, nil)

	got, err := ledger.History(context.Background(), "org-1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}
