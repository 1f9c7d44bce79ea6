package models

// Status is a user's explicit online/offline flag. It is never inferred from
// request activity; a user stays in their last reported state until they set
// a new one.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PresenceEntry is the stored presence record for a single user. Last write
// wins regardless of source.
type PresenceEntry struct {
	Username  string `json:"username"`
	Status    Status `json:"status"`
	UpdatedTS int64  `json:"updated_ts"`
}
