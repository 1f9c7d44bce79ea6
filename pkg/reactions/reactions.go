package reactions

import (
	"encoding/json"
	"fmt"
	"sort"

	"livechat/pkg/logger"
	"livechat/pkg/models"
	"livechat/pkg/state"
)

// Aggregator tracks, per message id, which users attached which reaction
// kinds. All mutation goes through the state store's atomic per-key
// read-modify-write, so concurrent reactions to the same message never lose
// updates. Reaction kinds are opaque strings; nothing here cares whether
// they are emoji.
type Aggregator struct {
	st state.Store
}

// New returns an Aggregator backed by the given state store.
func New(st state.Store) *Aggregator {
	return &Aggregator{st: st}
}

// stored layout: kind -> set of usernames
type reactionState map[string]map[string]struct{}

func decode(b []byte) (reactionState, error) {
	rs := reactionState{}
	if len(b) == 0 {
		return rs, nil
	}
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("invalid reaction state: %w", err)
	}
	return rs, nil
}

// Add records that user reacted to messageID with kind. Adding the same
// reaction twice is idempotent.
func (a *Aggregator) Add(messageID, username, kind string) error {
	err := a.st.Update(messageID, func(cur []byte) ([]byte, error) {
		rs, err := decode(cur)
		if err != nil {
			return nil, err
		}
		users, ok := rs[kind]
		if !ok {
			users = map[string]struct{}{}
			rs[kind] = users
		}
		users[username] = struct{}{}
		return json.Marshal(rs)
	})
	if err != nil {
		return err
	}
	logger.Debug("reaction_added", "message", messageID, "user", username, "kind", kind)
	return nil
}

// Remove drops user's reaction of the given kind. Removing an absent
// reaction is a no-op, not an error.
func (a *Aggregator) Remove(messageID, username, kind string) error {
	err := a.st.Update(messageID, func(cur []byte) ([]byte, error) {
		rs, err := decode(cur)
		if err != nil {
			return nil, err
		}
		users, ok := rs[kind]
		if !ok {
			return cur, nil
		}
		delete(users, username)
		if len(users) == 0 {
			delete(rs, kind)
		}
		if len(rs) == 0 {
			return nil, nil
		}
		return json.Marshal(rs)
	})
	if err != nil {
		return err
	}
	logger.Debug("reaction_removed", "message", messageID, "user", username, "kind", kind)
	return nil
}

// Summarize returns kind -> {count, users} for a message. Unknown messages
// yield an empty map, never an error; usernames are sorted so summaries are
// stable for clients re-rendering on every poll.
func (a *Aggregator) Summarize(messageID string) (map[string]models.ReactionSummary, error) {
	out := map[string]models.ReactionSummary{}
	b, ok, err := a.st.Get(messageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return out, nil
	}
	rs, err := decode(b)
	if err != nil {
		return nil, err
	}
	for kind, users := range rs {
		names := make([]string, 0, len(users))
		for u := range users {
			names = append(names, u)
		}
		sort.Strings(names)
		out[kind] = models.ReactionSummary{Count: len(names), Users: names}
	}
	return out, nil
}

// Drop discards all reaction state owned by messageID. Used when the ledger
// prunes the owning message.
func (a *Aggregator) Drop(messageID string) error {
	return a.st.Delete(messageID)
}
