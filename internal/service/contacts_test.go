package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContactRequiresName(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "", "+39333", nil, 1)
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Add(ctx, "alice", "   ", "+39333", nil, 1)
	assert.ErrorIs(t, err, ErrNameRequired)

	contacts, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, contacts, "validation failures must not write")
}

func TestAddContactDefaultsPriority(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()

	c, err := svc.Add(ctx, "alice", "  Marco  ", "+39333", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "Marco", c.ContactName)
	assert.Equal(t, 1, c.Priority)
	assert.True(t, c.IsActive)
	assert.NotEmpty(t, c.ID)
}

func TestListOrdersByPriority(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "Second", "", nil, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "alice", "First", "", nil, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "bob", "Other", "", nil, 1)
	require.NoError(t, err)

	contacts, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "First", contacts[0].ContactName)
	assert.Equal(t, "Second", contacts[1].ContactName)
}

func TestRemoveContact(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()

	c, err := svc.Add(ctx, "alice", "Marco", "", nil, 1)
	require.NoError(t, err)

	// another user cannot remove it
	assert.Error(t, svc.Remove(ctx, "bob", c.ID))
	require.NoError(t, svc.Remove(ctx, "alice", c.ID))
	assert.Error(t, svc.Remove(ctx, "alice", c.ID))
}

func TestToggleContact(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()

	c, err := svc.Add(ctx, "alice", "Marco", "", nil, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Toggle(ctx, "alice", c.ID, false))
	contacts, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, contacts[0].IsActive)

	assert.Error(t, svc.Toggle(ctx, "alice", "missing", true))
}

func TestActiveLinkedFiltersEligibility(t *testing.T) {
	svc := NewContactService(newTestDB(t))
	ctx := context.Background()
	guard := "guard"
	inactive := "sleeper"

	_, err := svc.Add(ctx, "alice", "Linked", "", &guard, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "alice", "PhoneOnly", "+39333", nil, 2)
	require.NoError(t, err)
	c, err := svc.Add(ctx, "alice", "Disabled", "", &inactive, 3)
	require.NoError(t, err)
	require.NoError(t, svc.Toggle(ctx, "alice", c.ID, false))

	eligible, err := svc.ActiveLinked(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "Linked", eligible[0].ContactName)
}
