package state

import (
	"errors"
	"strings"
	"sync"

	"livechat/pkg/store"
)

// Pebble is a Store backed by the server's Pebble database under a key
// namespace, so reaction and presence state survive restarts. Per-key
// serialization is enforced in-process, which matches the single-process
// ownership model of the core.
type Pebble struct {
	prefix string
	lkmu   sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewPebble returns a Pebble-backed store namespaced under prefix
// (e.g. "react:" or "presence:"). The store package must be opened first.
func NewPebble(prefix string) *Pebble {
	return &Pebble{prefix: prefix, locks: make(map[string]*sync.Mutex)}
}

func (s *Pebble) keyLock(key string) *sync.Mutex {
	s.lkmu.Lock()
	defer s.lkmu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Pebble) Get(key string) ([]byte, bool, error) {
	v, err := store.GetKey(s.prefix + key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *Pebble) Update(key string, fn func(cur []byte) ([]byte, error)) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	cur, _, err := s.Get(key)
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		return store.DeleteKey(s.prefix + key)
	}
	return store.SaveKey(s.prefix+key, next)
}

func (s *Pebble) Delete(key string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	return store.DeleteKey(s.prefix + key)
}

func (s *Pebble) Range(fn func(key string, val []byte) bool) error {
	keys, err := store.ListKeys(s.prefix)
	if err != nil {
		return err
	}
	for _, full := range keys {
		v, err := store.GetKey(full)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if !fn(strings.TrimPrefix(full, s.prefix), v) {
			break
		}
	}
	return nil
}
