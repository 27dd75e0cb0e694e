// Package cache holds per-user derived data (categorization inputs,
// dashboard summaries) that is cheap to rebuild but read on every request.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the read-through store used by the services.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and returns how many
	// entries were removed.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{caches: make(map[string]Cleaner)}
}

// Register adds a named cache to the sweep.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep cleans every registered cache once and returns the total removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.Debug("Cache entries expired", "cache", name, "removed", n)
			total += n
		}
	}
	return total
}

// StartCleanup begins periodic sweeping in the background.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stopCleanup = make(chan struct{})
	m.cleanupDone = make(chan struct{})
	stop, done := m.stopCleanup, m.cleanupDone
	m.mu.Unlock()
	go m.cleanup(interval, stop, done)
}

func (m *Manager) cleanup(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-stop:
			return
		}
	}
}

// Stop ends the background sweep. Safe to call when it never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	stop, done := m.stopCleanup, m.cleanupDone
	m.mu.Unlock()
	if !started {
		return
	}
	close(stop)
	<-done
}
