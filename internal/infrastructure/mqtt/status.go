package mqtt

import (
	"encoding/json"
	"time"
)

// Status values carried on {prefix}/system/status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Offline reasons. The broker publishes reasonCrashed as the will message,
// Close publishes reasonShutdown.
const (
	reasonCrashed  = "unexpected_disconnect"
	reasonShutdown = "graceful_shutdown"
)

// StatusMessage is the retained payload on the system status topic.
type StatusMessage struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func statusPayload(status, clientID, reason string) []byte {
	b, err := json.Marshal(StatusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		// StatusMessage has no fields that can fail to encode.
		panic(err)
	}
	return b
}
