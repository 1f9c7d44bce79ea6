package media

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livechat/pkg/logger"
	"livechat/pkg/store"
)

// ErrNotFound is returned when a user has no stored profile image.
var ErrNotFound = errors.New("profile image not found")

// Store is the profile-image capability: latest-wins replace on put, bytes
// or not-found on get.
type Store interface {
	Put(username string, data []byte) (url string, err error)
	Get(username string) ([]byte, error)
}

// PebbleStore keeps profile images in the server's Pebble database. The blob
// lives under a per-user key so a new upload replaces the old one; a small
// meta record keeps the content hash and upload time.
type PebbleStore struct {
	baseURL string
}

type imageMeta struct {
	SHA256     string `json:"sha256"`
	Size       int    `json:"size"`
	UploadedTS int64  `json:"uploaded_ts"`
}

// NewPebbleStore returns a store producing URLs under baseURL
// (e.g. "/v1/profile").
func NewPebbleStore(baseURL string) *PebbleStore {
	return &PebbleStore{baseURL: baseURL}
}

func (s *PebbleStore) Put(username string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	meta := imageMeta{
		SHA256:     hex.EncodeToString(sum[:]),
		Size:       len(data),
		UploadedTS: time.Now().UTC().UnixNano(),
	}
	if err := store.SaveKey("profile:img:"+username, data); err != nil {
		return "", err
	}
	mb, _ := json.Marshal(meta)
	if err := store.SaveKey("profile:meta:"+username, mb); err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/image", s.baseURL, username)
	logger.Info("profile_image_stored", "user", username, "size", len(data), "sha256", meta.SHA256)
	return url, nil
}

func (s *PebbleStore) Get(username string) ([]byte, error) {
	b, err := store.GetKey("profile:img:" + username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}
