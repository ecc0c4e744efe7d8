package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_RoundTripsData(t *testing.T) {
	data := GrantClaimedEvent{
		Grant:        "grant-1",
		Employee:     "bob",
		Amount:       "16666",
		TotalClaimed: "16666",
		Remaining:    "83334",
		ClaimedAt:    1700000000,
	}

	event, err := NewEvent(EventTypeGrantClaimed, "grant-1", data, EventMetadata{Source: "vesting-api", Principal: "bob"})
	require.NoError(t, err)

	assert.Equal(t, EventTypeGrantClaimed, event.Type)
	assert.Equal(t, "grant-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	parsed, err := ParseEventData[GrantClaimedEvent](&decoded)
	require.NoError(t, err)
	assert.Equal(t, data, *parsed)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "vesting.grant.created", Subject("vesting", EventTypeGrantCreated))
	assert.Equal(t, "vesting.grant.created", Subject("vesting.", EventTypeGrantCreated))
	assert.Equal(t, "grant.claimed", Subject("", EventTypeGrantClaimed))
}

func TestClient_PublishWithoutConnection(t *testing.T) {
	var c *Client

	err := c.Publish(context.Background(), "vesting.grant.created", map[string]string{})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.IsConnected())
}
