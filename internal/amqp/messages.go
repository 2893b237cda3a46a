package amqp

import (
	"encoding/json"
	"time"

	"tally/internal/services"
)

// NotificationMessage wraps a notification for the queue. The worker reads it
// back and hands it to the mailer; the payload stays opaque JSON here.
type NotificationMessage struct {
	Notification services.Notification `json:"notification"`
	Timestamp    time.Time             `json:"timestamp"`
}

func NewNotificationMessage(n services.Notification) *NotificationMessage {
	return &NotificationMessage{
		Notification: n,
		Timestamp:    time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
