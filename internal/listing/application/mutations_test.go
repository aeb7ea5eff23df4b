package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	"github.com/davicafu/listdash/tests/mocks"
)

func TestMutationNotifier_Publishes(t *testing.T) {
	bus := new(mocks.MockEventBus)
	notifier := NewMutationNotifier(bus, zap.NewNop())

	var published interface{}
	bus.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1)
	}).Return(nil).Once()

	err := notifier.Notify(context.Background(), domain.UserUpdated, domain.MutationEvent{Resource: "user", ResourceID: "42"})
	require.NoError(t, err)
	bus.AssertExpectations(t)

	evt, key := mocks.Decode(published)
	assert.Equal(t, domain.UserUpdated, evt.Type)
	assert.Equal(t, "user:42", key)
	assert.False(t, evt.Timestamp.IsZero())

	var payload domain.MutationEvent
	require.NoError(t, json.Unmarshal(evt.Data, &payload))
	assert.Equal(t, domain.MutationEvent{Resource: "user", ResourceID: "42"}, payload)
}

func TestMutationNotifier_RejectsUnknownType(t *testing.T) {
	bus := new(mocks.MockEventBus)
	notifier := NewMutationNotifier(bus, zap.NewNop())

	err := notifier.Notify(context.Background(), "order.created", domain.MutationEvent{})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMutationNotifier_WrapsBusErrors(t *testing.T) {
	bus := new(mocks.MockEventBus)
	notifier := NewMutationNotifier(bus, zap.NewNop())
	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := notifier.Notify(context.Background(), domain.RoleDeleted, domain.MutationEvent{Resource: "role"})
	assert.EqualError(t, err, "publish role.deleted: broker down")
}
