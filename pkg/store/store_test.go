package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrisonrobin/errands/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "errands", "tasks.json"))
}

func TestGetMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	data, err := s.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(data.Tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(data.Tasks))
	}
}

func TestSetGet(t *testing.T) {
	s := newTestStore(t)
	want := model.Data{Tasks: []model.Task{
		{ID: "a", Text: "Groceries", Color: "green", SyncedNC: true},
		{ID: "b", Text: "Buy eggs", Parent: "a", Completed: true, SyncedGTasks: true},
	}}
	if err := s.Set(want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Tasks) != 2 || got.Tasks[0] != want.Tasks[0] || got.Tasks[1] != want.Tasks[1] {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(s.Path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temporary file to be gone, got %v", err)
	}
}

func TestGetCorruptFile(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(); err == nil {
		t.Error("Expected an error for a corrupt store")
	}
}

func TestAdd(t *testing.T) {
	s := newTestStore(t)
	parent, err := s.Add("Groceries", "", "green")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if parent.ID == "" {
		t.Fatal("Expected a generated id")
	}

	child, err := s.Add("Buy eggs", parent.ID, "none")
	if err != nil {
		t.Fatalf("Add child failed: %v", err)
	}
	if child.ID == parent.ID {
		t.Error("Expected distinct ids")
	}

	data, err := s.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(data.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(data.Tasks))
	}
	if got := data.Tasks[1]; got.Parent != parent.ID || got.SyncedNC || got.SyncedGTasks {
		t.Errorf("Unexpected child %+v", got)
	}
}

func TestAddUnknownParent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add("Buy eggs", "missing", "none")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestCompleteResetsSyncedFlags(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set(model.Data{Tasks: []model.Task{
		{ID: "a", Text: "Walk dog", SyncedNC: true, SyncedGTasks: true},
	}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Complete("a"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	data, err := s.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got := data.Tasks[0]
	if !got.Completed || got.SyncedNC || got.SyncedGTasks {
		t.Errorf("Unexpected task after Complete: %+v", got)
	}

	if err := s.Complete("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}
