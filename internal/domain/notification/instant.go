// internal/domain/notification/instant.go
package notification

import "time"

// BroadcastRecipient addresses an instant notification to every user.
const BroadcastRecipient = "all"

// Instant is a short-lived notification kept for polling clients.
type Instant struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
