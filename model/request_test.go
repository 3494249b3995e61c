// api/model/request_test.go
package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegisgov/aegis/api/model"
)

func TestRequestStatusTerminal(t *testing.T) {
	assert.False(t, model.StatusPending.Terminal())
	assert.True(t, model.StatusApproved.Terminal())
	assert.True(t, model.StatusRejected.Terminal())
	assert.True(t, model.StatusCancelled.Terminal())
}

func TestValidStatus(t *testing.T) {
	for _, status := range []model.RequestStatus{model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusCancelled} {
		assert.True(t, model.ValidStatus(status))
	}
	assert.False(t, model.ValidStatus(model.RequestStatus("granted")))
	assert.False(t, model.ValidStatus(model.RequestStatus("")))
}
