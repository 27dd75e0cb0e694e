package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys. The exchange is a topic exchange, so consumers bind with
// patterns such as "notification.*" or "audit.#".
const (
	RoutingNotificationEmail = "notification.email"
	RoutingAuditPrefix       = "audit."
)

// Event is the envelope for everything published on the exchange. Payload
// carries identifiers only; consumers load full records from the database.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"userId,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewEvent(eventType, userID string, payload map[string]string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NotificationEvent announces an email-channel notification awaiting delivery.
func NotificationEvent(userID, notificationID string) *Event {
	return NewEvent(RoutingNotificationEmail, userID, map[string]string{"notificationId": notificationID})
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
