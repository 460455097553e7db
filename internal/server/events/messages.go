package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	EntityExpense = "expense"
	EntityPayment = "payment"
	EntityPhoto   = "photo"
	EntitySetting = "setting"
)

// ChangeMessage announces one committed mutation so downstream consumers
// (exports, backups) can react without polling.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        int64     `json:"id,omitempty"`
	Key       string    `json:"key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity, action string, id int64) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal change message: %w", err)
	}
	return body, nil
}

func ChangeMessageFromJSON(body []byte) (*ChangeMessage, error) {
	var m ChangeMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("unmarshal change message: %w", err)
	}
	return &m, nil
}
