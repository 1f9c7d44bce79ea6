package presence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"livechat/pkg/logger"
	"livechat/pkg/models"
	"livechat/pkg/state"
)

// Tracker maps usernames to their explicitly reported online/offline status.
// Last writer wins regardless of source. There is deliberately no TTL or
// heartbeat: a client that disconnects without reporting offline stays
// online until it says otherwise.
type Tracker struct {
	st state.Store
}

// New returns a Tracker backed by the given state store.
func New(st state.Store) *Tracker {
	return &Tracker{st: st}
}

// SetStatus unconditionally overwrites the user's presence entry.
func (t *Tracker) SetStatus(username string, status models.Status) error {
	entry := models.PresenceEntry{
		Username:  username,
		Status:    status,
		UpdatedTS: time.Now().UTC().UnixNano(),
	}
	err := t.st.Update(username, func([]byte) ([]byte, error) {
		return json.Marshal(entry)
	})
	if err != nil {
		return err
	}
	logger.Debug("presence_updated", "user", username, "status", string(status))
	return nil
}

// GetStatus returns the user's status, defaulting to offline for unknown
// usernames. Unknown is not an error.
func (t *Tracker) GetStatus(username string) (models.Status, error) {
	b, ok, err := t.st.Get(username)
	if err != nil {
		return models.StatusOffline, err
	}
	if !ok {
		return models.StatusOffline, nil
	}
	var entry models.PresenceEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return models.StatusOffline, fmt.Errorf("invalid presence entry: %w", err)
	}
	return entry.Status, nil
}

// ListOnline returns the usernames currently marked online, sorted.
func (t *Tracker) ListOnline() ([]string, error) {
	out := []string{}
	err := t.st.Range(func(key string, val []byte) bool {
		var entry models.PresenceEntry
		if json.Unmarshal(val, &entry) == nil && entry.Status == models.StatusOnline {
			out = append(out, entry.Username)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
