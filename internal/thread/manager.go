package thread

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a thread id is not in the store.
var ErrNotFound = errors.New("thread: not found")

// Manager is the in-memory keyed store for live threads. It is the only
// shared mutable state in the system: all reads hand out deep copies, and
// all writes go through Update, which serializes mutations per thread id.
// Inject a Manager wherever thread state is needed; it is never a
// process-wide singleton.
type Manager struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewManager returns an empty store.
func NewManager() *Manager {
	return &Manager{threads: make(map[string]*Thread)}
}

// Create registers a new thread in StatusProcessing and returns a snapshot
// of it. maxIterations is copied onto the thread so later config changes do
// not retroactively affect in-flight threads.
func (m *Manager) Create(userPrompt, modelID string, maxIterations int) (*Thread, error) {
	if userPrompt == "" {
		return nil, fmt.Errorf("thread: create: empty prompt")
	}
	if maxIterations <= 0 {
		return nil, fmt.Errorf("thread: create: maxIterations must be positive, got %d", maxIterations)
	}

	now := time.Now()
	t := &Thread{
		ID:                      uuid.NewString(),
		UserPrompt:              userPrompt,
		ModelID:                 modelID,
		Status:                  StatusProcessing,
		MaxIterations:           maxIterations,
		ProcessedFindingIndices: make(map[int]bool),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	m.mu.Lock()
	m.threads[t.ID] = t
	m.mu.Unlock()

	return t.clone(), nil
}

// Get returns a snapshot of the thread, or ErrNotFound.
func (m *Manager) Get(id string) (*Thread, error) {
	m.mu.RLock()
	t, ok := m.threads[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.clone(), nil
}

// List returns snapshots of all threads, newest first.
func (m *Manager) List() []*Thread {
	m.mu.RLock()
	out := make([]*Thread, 0, len(m.threads))
	for _, t := range m.threads {
		out = append(out, t.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Update applies fn to the stored thread under the store lock. fn sees the
// live object; an error from fn aborts the update and is returned as-is.
// Terminal threads are immutable and reject further updates.
func (m *Manager) Update(id string, fn func(*Thread) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("thread %s: terminal (%s), refusing update", id, t.Status)
	}
	if err := fn(t); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	return nil
}
