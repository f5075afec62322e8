// AngelaMos | 2026
// entity.go

package notification

const CollectionName = "notifications"

// Notification is one inbox entry. Timestamps are epoch milliseconds.
type Notification struct {
	ID        string `json:"uuid"`
	EventID   string `json:"eventId,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	Timestamp int64  `json:"timestamp"`
}

// inbox is the stored document, one per device, kept newest first.
type inbox struct {
	Notifications []Notification `json:"notifications"`
}
