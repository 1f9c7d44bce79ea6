package media_test

import (
	"bytes"
	"errors"
	"testing"

	"livechat/pkg/media"
	"livechat/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestPutAndGet(t *testing.T) {
	openStore(t)
	s := media.NewPebbleStore("/v1/profile")

	url, err := s.Put("alice", []byte("image-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/v1/profile/alice/image" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := s.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, []byte("image-bytes")) {
		t.Fatalf("round trip mismatch: %q", data)
	}
}

func TestLatestWins(t *testing.T) {
	openStore(t)
	s := media.NewPebbleStore("/v1/profile")

	if _, err := s.Put("bob", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	url2, err := s.Put("bob", []byte("second"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	data, _ := s.Get("bob")
	if string(data) != "second" {
		t.Fatalf("expected latest upload to win, got %q", data)
	}
	// the url is stable across replacements
	if url2 != "/v1/profile/bob/image" {
		t.Fatalf("url changed on replace: %q", url2)
	}
}

func TestGetMissing(t *testing.T) {
	openStore(t)
	s := media.NewPebbleStore("/v1/profile")

	_, err := s.Get("nobody")
	if !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
