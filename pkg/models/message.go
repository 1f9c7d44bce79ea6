package models

// Message is a single immutable chat message. Key is the ordering key the
// ledger assigned on append; it totally orders messages and doubles as the
// client sync cursor.
type Message struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
	TS     int64  `json:"ts"`
	Key    string `json:"key"`
}
