package event

import (
	"time"

	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// Event is a fact recorded after a committed change
type Event struct {
	ID             string                 `json:"id"`
	Type           Type                   `json:"type"`
	OrganizationID int64                  `json:"organization_id"`
	ExpenseID      int64                  `json:"expense_id,omitempty"`
	ActorID        string                 `json:"actor_id,omitempty"`
	Payload        map[string]interface{} `json:"payload"`
	Timestamp      time.Time              `json:"timestamp"`
	CorrelationID  string                 `json:"correlation_id"`
}

// NewEvent creates an event with a fresh ID that also starts a new correlation chain
func NewEvent(eventType Type, orgID, expenseID int64, actorID string, payload map[string]interface{}) *Event {
	id := utils.NewID()
	return &Event{
		ID:             id,
		Type:           eventType,
		OrganizationID: orgID,
		ExpenseID:      expenseID,
		ActorID:        actorID,
		Payload:        payload,
		Timestamp:      time.Now().UTC(),
		CorrelationID:  id,
	}
}

// Follow creates an event caused by e, sharing its correlation ID
func (e *Event) Follow(eventType Type, payload map[string]interface{}) *Event {
	next := NewEvent(eventType, e.OrganizationID, e.ExpenseID, e.ActorID, payload)
	next.CorrelationID = e.CorrelationID
	return next
}

// WithPayload returns a copy of the event with key set
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) (float64, bool) {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
