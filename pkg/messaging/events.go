package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeGrantCreated = "grant.created"
	EventTypeGrantClaimed = "grant.claimed"
)

// Event is the envelope published for every grant state change.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Data        json.RawMessage `json:"data"`
	Metadata    EventMetadata   `json:"metadata"`
}

type EventMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	Principal     string `json:"principal,omitempty"`
	Source        string `json:"source"`
}

// Amounts are base units rendered as decimal strings so they survive JSON
// consumers that parse numbers as float64.
type GrantCreatedEvent struct {
	Grant     string `json:"grant"`
	Employer  string `json:"employer"`
	Employee  string `json:"employee"`
	Asset     string `json:"asset"`
	Vault     string `json:"vault"`
	Deposited string `json:"deposited"`
	StartDate int64  `json:"start_date"`
	CliffDate int64  `json:"cliff_date"`
	EndDate   int64  `json:"end_date"`
}

type GrantClaimedEvent struct {
	Grant        string `json:"grant"`
	Employee     string `json:"employee"`
	Destination  string `json:"destination"`
	Amount       string `json:"amount"`
	TotalClaimed string `json:"total_claimed"`
	Remaining    string `json:"remaining"`
	ClaimedAt    int64  `json:"claimed_at"`
}

func NewEvent(eventType, aggregateID string, data any, metadata EventMetadata) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return &Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Timestamp:   time.Now().UTC(),
		Version:     1,
		Data:        dataBytes,
		Metadata:    metadata,
	}, nil
}

func ParseEventData[T any](event *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Subject builds "<prefix>.<event type>", e.g. vesting.grant.claimed.
func Subject(prefix, eventType string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
