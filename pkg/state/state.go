package state

import "sync"

// Store is a keyed state capability with atomic per-key read-modify-write.
// The coordination core keeps its mutable shared state (reactions, presence)
// behind this interface so the logic is testable against the in-memory
// implementation and swappable for a durable or distributed store without
// touching call sites.
//
// Update calls fn with the current value for key (nil when absent) and stores
// the returned value; returning nil deletes the key. Concurrent Updates on
// the same key are serialized; different keys proceed independently.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Update(key string, fn func(cur []byte) ([]byte, error)) error
	Delete(key string) error
	Range(fn func(key string, val []byte) bool) error
}

// Memory is the in-process Store implementation.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	lkmu  sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:  make(map[string][]byte),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Memory) keyLock(key string) *sync.Mutex {
	s.lkmu.Lock()
	defer s.lkmu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Memory) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Update(key string, fn func(cur []byte) ([]byte, error)) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	cur, ok := s.data[key]
	s.mu.RUnlock()
	var in []byte
	if ok {
		in = append([]byte(nil), cur...)
	}
	next, err := fn(in)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if next == nil {
		delete(s.data, key)
	} else {
		s.data[key] = next
	}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(key string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Range(fn func(key string, val []byte) bool) error {
	s.mu.RLock()
	snapshot := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		snapshot[k] = append([]byte(nil), v...)
	}
	s.mu.RUnlock()
	for k, v := range snapshot {
		if !fn(k, v) {
			break
		}
	}
	return nil
}
