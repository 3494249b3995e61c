// api/service/template_service_test.go
package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisgov/aegis/api/audit"
	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/service"
	"github.com/aegisgov/aegis/api/test/mock"
	"github.com/aegisgov/aegis/api/util"
)

type catalogFixture struct {
	service       *service.AccessTemplateService
	requestStore  *mock.MemoryRequestStore
	templateStore *mock.MemoryTemplateStore
	ledger        *mock.RecordingLedger
}

func newCatalogFixture() *catalogFixture {
	requestStore := mock.NewMemoryRequestStore()
	templateStore := mock.NewMemoryTemplateStore(requestStore)
	ledger := mock.NewRecordingLedger()

	svc := service.NewAccessTemplateService(
		templateStore,
		ledger,
		util.NewValidationUtil(),
		mock.NullCache{},
		util.NewNotificationService(),
		util.NewEventBus(),
	)

	return &catalogFixture{
		service:       svc,
		requestStore:  requestStore,
		templateStore: templateStore,
		ledger:        ledger,
	}
}

func validTemplate(orgID string) model.AccessTemplate {
	return model.AccessTemplate{
		OrganizationID: orgID,
		Name:           "maintainer",
		Grants: []model.Grant{
			{Scope: "repository", Permission: "write"},
			{Scope: "team", Permission: "read"},
		},
	}
}

func (f *catalogFixture) createPendingReference(t *testing.T, orgID, templateID string) *model.AccessRequest {
	t.Helper()
	request, err := f.requestStore.CreateRequest(context.Background(), model.AccessRequest{
		OrganizationID: orgID,
		RequesterID:    "alice",
		ResourceType:   "repository",
		ResourceID:     "repo-42",
		TemplateID:     templateID,
	})
	require.NoError(t, err)
	return request
}

func TestCreateTemplate(t *testing.T) {
	t.Run("StartsAtVersionOne", func(t *testing.T) {
		f := newCatalogFixture()

		created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, 1, created.Version)

		entries := f.ledger.EntriesByAction(audit.ActionTemplateCreated)
		require.Len(t, entries, 1)
		assert.Equal(t, created.ID, entries[0].ResourceID)
	})

	t.Run("RejectsTemplateWithoutGrants", func(t *testing.T) {
		f := newCatalogFixture()

		template := validTemplate("org-1")
		template.Grants = nil
		_, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, template)
		assert.ErrorIs(t, err, aegis_errors.ErrInvalidTemplateData)
	})
}

func TestBulkCreateTemplates(t *testing.T) {
	f := newCatalogFixture()

	templates := make([]model.AccessTemplate, 5)
	for i := range templates {
		templates[i] = validTemplate("org-1")
	}

	ids, err := f.service.BulkCreateTemplates(context.Background(), model.Identity{UserID: "admin"}, templates)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	for _, id := range ids {
		assert.NotEmpty(t, id)
		template, getErr := f.service.GetTemplate(context.Background(), "org-1", id)
		require.NoError(t, getErr)
		assert.Equal(t, 1, template.Version)
	}
}

func TestUpdateTemplate(t *testing.T) {
	t.Run("BumpsVersionStrictly", func(t *testing.T) {
		f := newCatalogFixture()
		created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
		require.NoError(t, err)

		created.Name = "maintainer-extended"
		updated, err := f.service.UpdateTemplate(context.Background(), model.Identity{UserID: "admin"}, *created)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		updated.Grants = append(updated.Grants, model.Grant{Scope: "organization", Permission: "read"})
		again, err := f.service.UpdateTemplate(context.Background(), model.Identity{UserID: "admin"}, *updated)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Version)

		require.Len(t, f.ledger.EntriesByAction(audit.ActionTemplateUpdated), 2)
	})

	t.Run("HidesTemplatesOfOtherOrganizations", func(t *testing.T) {
		f := newCatalogFixture()
		created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
		require.NoError(t, err)

		created.OrganizationID = "org-2"
		_, err = f.service.UpdateTemplate(context.Background(), model.Identity{UserID: "admin"}, *created)
		assert.ErrorIs(t, err, aegis_errors.ErrTemplateNotFound)
	})
}

func TestDeleteTemplate(t *testing.T) {
	t.Run("RefusedWhilePendingRequestReferencesIt", func(t *testing.T) {
		f := newCatalogFixture()
		created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
		require.NoError(t, err)
		f.createPendingReference(t, "org-1", created.ID)

		err = f.service.DeleteTemplate(context.Background(), model.Identity{UserID: "admin"}, "org-1", created.ID)
		assert.ErrorIs(t, err, aegis_errors.ErrTemplateInUse)

		// Still retrievable after the refused delete.
		_, err = f.service.GetTemplate(context.Background(), "org-1", created.ID)
		assert.NoError(t, err)
	})

	t.Run("AllowedOnceReferencesAreTerminal", func(t *testing.T) {
		f := newCatalogFixture()
		created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
		require.NoError(t, err)
		request := f.createPendingReference(t, "org-1", created.ID)

		_, err = f.requestStore.TransitionRequest(context.Background(), request.ID, model.StatusRejected, "bob", request.CreatedAt)
		require.NoError(t, err)

		err = f.service.DeleteTemplate(context.Background(), model.Identity{UserID: "admin"}, "org-1", created.ID)
		require.NoError(t, err)

		_, err = f.service.GetTemplate(context.Background(), "org-1", created.ID)
		assert.ErrorIs(t, err, aegis_errors.ErrTemplateNotFound)
		require.Len(t, f.ledger.EntriesByAction(audit.ActionTemplateDeleted), 1)
	})

	t.Run("UnknownTemplate", func(t *testing.T) {
		f := newCatalogFixture()
		err := f.service.DeleteTemplate(context.Background(), model.Identity{UserID: "admin"}, "org-1", "missing")
		assert.ErrorIs(t, err, aegis_errors.ErrTemplateNotFound)
	})
}

func TestGetTemplateUsage(t *testing.T) {
	f := newCatalogFixture()
	created, err := f.service.CreateTemplate(context.Background(), model.Identity{UserID: "admin"}, validTemplate("org-1"))
	require.NoError(t, err)

	first := f.createPendingReference(t, "org-1", created.ID)
	f.createPendingReference(t, "org-1", created.ID)
	third := f.createPendingReference(t, "org-1", created.ID)

	_, err = f.requestStore.TransitionRequest(context.Background(), first.ID, model.StatusApproved, "bob", first.CreatedAt)
	require.NoError(t, err)
	_, err = f.requestStore.TransitionRequest(context.Background(), third.ID, model.StatusCancelled, "", third.CreatedAt)
	require.NoError(t, err)

	usage, err := f.service.GetTemplateUsage(context.Background(), "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, usage.TemplateID)
	assert.Equal(t, 3, usage.Total)
	assert.Equal(t, 1, usage.ByStatus[model.StatusPending])
	assert.Equal(t, 1, usage.ByStatus[model.StatusApproved])
	assert.Equal(t, 1, usage.ByStatus[model.StatusCancelled])

	_, err = f.service.GetTemplateUsage(context.Background(), "org-2", created.ID)
	assert.ErrorIs(t, err, aegis_errors.ErrTemplateNotFound)
}
