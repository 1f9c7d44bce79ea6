package presence_test

import (
	"testing"

	"livechat/pkg/models"
	"livechat/pkg/presence"
	"livechat/pkg/state"
)

func TestUnknownUserDefaultsOffline(t *testing.T) {
	track := presence.New(state.NewMemory())
	st, err := track.GetStatus("never-seen")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != models.StatusOffline {
		t.Fatalf("expected offline for unknown user, got %q", st)
	}
}

func TestSetAndGetStatus(t *testing.T) {
	track := presence.New(state.NewMemory())

	if err := track.SetStatus("alice", models.StatusOnline); err != nil {
		t.Fatalf("set: %v", err)
	}
	st, _ := track.GetStatus("alice")
	if st != models.StatusOnline {
		t.Fatalf("expected online, got %q", st)
	}

	// last writer wins
	if err := track.SetStatus("alice", models.StatusOffline); err != nil {
		t.Fatalf("set: %v", err)
	}
	st, _ = track.GetStatus("alice")
	if st != models.StatusOffline {
		t.Fatalf("expected offline after overwrite, got %q", st)
	}
}

func TestListOnline(t *testing.T) {
	track := presence.New(state.NewMemory())
	_ = track.SetStatus("carol", models.StatusOnline)
	_ = track.SetStatus("alice", models.StatusOnline)
	_ = track.SetStatus("bob", models.StatusOffline)

	online, err := track.ListOnline()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(online) != 2 || online[0] != "alice" || online[1] != "carol" {
		t.Fatalf("expected [alice carol], got %v", online)
	}
}

func TestOfflineNeverExpiresBackToOnline(t *testing.T) {
	// no TTL: whatever was reported last stays until overwritten
	track := presence.New(state.NewMemory())
	_ = track.SetStatus("dan", models.StatusOnline)

	online, _ := track.ListOnline()
	if len(online) != 1 {
		t.Fatalf("expected dan online, got %v", online)
	}
}
