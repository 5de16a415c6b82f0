package storage

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
)

var (
	// ErrInvalidValues indicates the provided values contain keys outside the known set.
	ErrInvalidValues = errors.New("fetched values must only contain known config keys")
)

// Entry is the last set of values returned by the remote config service.
type Entry struct {
	Values    map[remoteconfig.Key]string
	FetchedAt time.Time
}

// Storage keeps the most recently fetched remote values.
type Storage interface {
	LastFetched() (Entry, bool)
	SaveFetched(values map[remoteconfig.Key]string, at time.Time) error
}

// MemoryStorage keeps fetched values in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	entry *Entry
}

// NewMemoryStorage initialises an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// LastFetched returns a defensive copy of the last saved entry.
func (s *MemoryStorage) LastFetched() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return Entry{}, false
	}
	return Entry{
		Values:    cloneValues(s.entry.Values),
		FetchedAt: s.entry.FetchedAt,
	}, true
}

// SaveFetched validates and stores the provided values, replacing the previous entry.
func (s *MemoryStorage) SaveFetched(values map[remoteconfig.Key]string, at time.Time) error {
	for key := range values {
		if !key.Valid() {
			return ErrInvalidValues
		}
	}

	entry := &Entry{Values: cloneValues(values), FetchedAt: at}

	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()

	return nil
}

func cloneValues(src map[remoteconfig.Key]string) map[remoteconfig.Key]string {
	if len(src) == 0 {
		return map[remoteconfig.Key]string{}
	}
	return maps.Clone(src)
}
