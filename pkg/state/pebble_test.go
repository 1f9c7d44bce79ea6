package state_test

import (
	"testing"

	"livechat/pkg/state"
	"livechat/pkg/store"
)

func TestPebbleStateRoundTrip(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	st := state.NewPebble("test:")

	if err := st.Update("a", func(cur []byte) ([]byte, error) { return []byte("1"), nil }); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, ok, err := st.Get("a")
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("get: %q ok=%v err=%v", v, ok, err)
	}

	// namespaces are isolated by prefix
	other := state.NewPebble("other:")
	if _, ok, _ := other.Get("a"); ok {
		t.Fatalf("prefix leak between namespaces")
	}

	// Range yields trimmed keys
	_ = st.Update("b", func(cur []byte) ([]byte, error) { return []byte("2"), nil })
	seen := map[string]string{}
	if err := st.Range(func(key string, val []byte) bool {
		seen[key] = string(val)
		return true
	}); err != nil {
		t.Fatalf("range: %v", err)
	}
	if seen["a"] != "1" || seen["b"] != "2" || len(seen) != 2 {
		t.Fatalf("unexpected range result: %v", seen)
	}

	if err := st.Update("a", func(cur []byte) ([]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("delete via update: %v", err)
	}
	if _, ok, _ := st.Get("a"); ok {
		t.Fatalf("expected key deleted")
	}
}
