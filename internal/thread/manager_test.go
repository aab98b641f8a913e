package thread

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestManager_CreateAssignsUniqueIDs(t *testing.T) {
	m := NewManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		th, err := m.Create(fmt.Sprintf("prompt %d", i), "model-a", 5)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[th.ID] {
			t.Fatalf("duplicate thread id %s", th.ID)
		}
		seen[th.ID] = true
		if th.Status != StatusProcessing {
			t.Errorf("new thread status = %s, want PROCESSING", th.Status)
		}
		if th.MaxIterations != 5 {
			t.Errorf("MaxIterations = %d, want 5", th.MaxIterations)
		}
	}
}

func TestManager_CreateValidation(t *testing.T) {
	m := NewManager()
	if _, err := m.Create("", "model-a", 5); err == nil {
		t.Error("Create with empty prompt succeeded")
	}
	if _, err := m.Create("p", "model-a", 0); err == nil {
		t.Error("Create with zero maxIterations succeeded")
	}
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestManager_GetReturnsSnapshot(t *testing.T) {
	m := NewManager()
	th, _ := m.Create("prompt", "model-a", 5)

	snap, err := m.Get(th.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.UserPrompt = "mutated"
	snap.ProcessedFindingIndices[9] = true

	again, _ := m.Get(th.ID)
	if again.UserPrompt != "prompt" {
		t.Error("snapshot mutation leaked into store")
	}
	if again.ProcessedFindingIndices[9] {
		t.Error("snapshot map mutation leaked into store")
	}
}

func TestManager_UpdateRejectsTerminal(t *testing.T) {
	m := NewManager()
	th, _ := m.Create("prompt", "model-a", 5)
	if err := m.Update(th.ID, func(t *Thread) error {
		return t.Finish(StatusCompleted, "done", "")
	}); err != nil {
		t.Fatalf("finishing update: %v", err)
	}
	if err := m.Update(th.ID, func(t *Thread) error {
		t.WarningMessage = "late"
		return nil
	}); err == nil {
		t.Error("update of terminal thread succeeded, want error")
	}
}

func TestManager_UpdateErrorAborts(t *testing.T) {
	m := NewManager()
	th, _ := m.Create("prompt", "model-a", 5)
	sentinel := errors.New("boom")
	if err := m.Update(th.ID, func(*Thread) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Update error = %v, want sentinel", err)
	}
}

func TestManager_ConcurrentUpdates(t *testing.T) {
	m := NewManager()
	const workers = 8
	const updates = 50

	ids := make([]string, workers)
	for i := range ids {
		th, err := m.Create(fmt.Sprintf("prompt %d", i), "model-a", workers*updates+1)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids[i] = th.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for j := 0; j < updates; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_ = m.Update(id, func(th *Thread) error {
					th.IterationCounter++
					return nil
				})
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		th, err := m.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if th.IterationCounter != updates {
			t.Errorf("thread %s counter = %d, want %d", id, th.IterationCounter, updates)
		}
	}
}

func TestManager_ListNewestFirst(t *testing.T) {
	m := NewManager()
	for i := 0; i < 3; i++ {
		if _, err := m.Create(fmt.Sprintf("prompt %d", i), "model-a", 5); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	out := m.List()
	if len(out) != 3 {
		t.Fatalf("List returned %d threads, want 3", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CreatedAt.After(out[i-1].CreatedAt) {
			t.Error("List not sorted newest first")
		}
	}
}
