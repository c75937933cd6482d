package embedding

import "sync"

// Base provides behavior shared by every store.
type Base struct{}

// Describe returns a short description.
func (Base) Describe() string {
	return "base"
}

// Store keeps records in memory.
type Store struct {
	sync.Mutex
	Base

	records map[string]string
}

// Put stores a record.
// @param key string
func (s *Store) Put(key, value string) {
	s.Lock()
	defer s.Unlock()
	if s.records == nil {
		s.records = make(map[string]string)
	}
	s.records[key] = value
}
