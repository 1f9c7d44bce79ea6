package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"livechat/pkg/logger"
	"livechat/pkg/models"
)

// ErrUnavailable is returned when the backing store is not opened or has been
// closed. Callers must not assume a write took effect when they see it.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound is returned for key lookups with no stored value.
var ErrNotFound = errors.New("not found")

// ErrBadCursor is returned when a fetch cursor is neither an ordering key nor
// a bare unix-nano timestamp. Callers should treat it as bad input, not a
// storage fault.
var ErrBadCursor = errors.New("invalid cursor")

// msgPrefix is the ledger namespace. The remainder of the key is the ordering
// key, so Pebble's byte order is exactly the (createdAt, id) message order.
const msgPrefix = "chat:msg:"

var (
	db     *pebble.DB
	dbPath string

	// appendMu serializes ordering-key assignment. lastTS never decreases so
	// assigned keys are strictly increasing even if the wall clock steps back.
	appendMu sync.Mutex
	lastTS   int64
	seq      uint64
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// orderingKey renders a (timestamp, seq) pair as a fixed-width sortable
// string. Width matters: byte order must equal numeric order.
func orderingKey(ts int64, n uint64) string {
	return fmt.Sprintf("%020d-%06d", ts, n)
}

// AppendMessage creates and stores a new immutable message. The ordering key
// is assigned from a monotonic clock with a per-timestamp sequence to break
// ties; the single synced Set makes each append atomic.
func AppendMessage(author, body string) (models.Message, error) {
	if db == nil {
		return models.Message{}, ErrUnavailable
	}

	appendMu.Lock()
	ts := time.Now().UTC().UnixNano()
	if ts > lastTS {
		lastTS = ts
		seq = 0
	} else {
		ts = lastTS
		seq++
	}
	n := seq
	appendMu.Unlock()

	key := orderingKey(ts, n)
	m := models.Message{
		ID:     fmt.Sprintf("msg-%d-%d", ts, n),
		Author: author,
		Body:   body,
		TS:     ts,
		Key:    key,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(msgPrefix+key), data, pebble.Sync); err != nil {
		logger.Error("append_message_failed", "key", key, "error", err)
		return models.Message{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.Debug("message_appended", "id", m.ID, "key", key)
	return m, nil
}

// ListMessages returns every message in the ledger in ascending ordering-key
// order.
func ListMessages() ([]models.Message, error) {
	return listFrom([]byte(msgPrefix))
}

// ListMessagesSince returns the messages with ordering key strictly greater
// than the given cursor, ascending. The cursor is either a full ordering key
// from a previous response or a bare unix-nano timestamp (first poll), in
// which case every message with a strictly later timestamp qualifies. An
// empty cursor returns the whole ledger; anything else is ErrBadCursor.
func ListMessagesSince(cursor string) ([]models.Message, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return ListMessages()
	}
	if !strings.Contains(cursor, "-") {
		ts, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadCursor, cursor)
		}
		// strictly after timestamp ts: seek to the first key of ts+1
		return listFrom([]byte(msgPrefix + orderingKey(ts+1, 0)))
	}
	if !validOrderingKey(cursor) {
		return nil, fmt.Errorf("%w: %q", ErrBadCursor, cursor)
	}
	// strictly after a full ordering key: its immediate byte successor
	return listFrom(append([]byte(msgPrefix+cursor), 0))
}

// validOrderingKey reports whether s has the exact shape orderingKey emits:
// 20 digits, a dash, 6 digits. Anything else cannot have come from a previous
// response.
func validOrderingKey(s string) bool {
	if len(s) != 27 || s[20] != '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 20 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// listFrom iterates the ledger from the given seek position to the end of the
// message namespace.
func listFrom(seek []byte) ([]models.Message, error) {
	if db == nil {
		return nil, ErrUnavailable
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()
	prefix := []byte(msgPrefix)
	out := []models.Message{}
	for iter.SeekGE(seek); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("ledger_invalid_record", "key", string(iter.Key()), "error", err)
			return nil, fmt.Errorf("invalid ledger record at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// PurgeMessagesBefore deletes every message with an assigned timestamp older
// than cutoff and returns the ids of the deleted messages so callers can
// drop owned per-message state (reactions) with them.
func PurgeMessagesBefore(cutoff int64) ([]string, error) {
	if db == nil {
		return nil, ErrUnavailable
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()
	prefix := []byte(msgPrefix)
	end := []byte(msgPrefix + orderingKey(cutoff, 0))
	var ids []string
	var keys [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) || bytes.Compare(iter.Key(), end) >= 0 {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err == nil {
			ids = append(ids, m.ID)
		}
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return ids, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if len(keys) > 0 {
		logger.Info("ledger_purged", "deleted", len(keys), "cutoff", cutoff)
	}
	return ids, nil
}

// GetKey returns the raw value for the given key.
func GetKey(key string) ([]byte, error) {
	if db == nil {
		return nil, ErrUnavailable
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

// SaveKey stores an arbitrary key/value pair. Callers should choose a safe
// namespace (e.g. "profile:img:", "notify:").
func SaveKey(key string, value []byte) error {
	if db == nil {
		return ErrUnavailable
	}
	if err := db.Set([]byte(key), value, pebble.Sync); err != nil {
		logger.Error("save_key_failed", "key", key, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteKey removes a stored key. Deleting an absent key is a no-op.
func DeleteKey(key string) error {
	if db == nil {
		return ErrUnavailable
	}
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ListKeys returns all keys that start with the given prefix.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, ErrUnavailable
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()
	pfx := []byte(prefix)
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}
