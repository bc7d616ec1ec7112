package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/harrisonrobin/errands/pkg/model"
)

// ErrTaskNotFound is returned by local edits that target an unknown id.
var ErrTaskNotFound = errors.New("task not found")

// Store is the local task store: one JSON snapshot on disk.
type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Get reads the whole snapshot. A missing file is an empty store.
func (s *Store) Get() (model.Data, error) {
	var data model.Data
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return data, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return data, fmt.Errorf("failed to decode task store %s: %w", s.Path, err)
	}
	return data, nil
}

// Set overwrites the whole snapshot.
func (s *Store) Set(data model.Data) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create task store directory: %w", err)
	}
	if data.Tasks == nil {
		data.Tasks = []model.Task{}
	}

	tmp := s.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open task store for writing: %w", err)
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode task store: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Add appends a new unsynced task with a fresh local id.
func (s *Store) Add(text, parent, color string) (model.Task, error) {
	data, err := s.Get()
	if err != nil {
		return model.Task{}, err
	}
	if parent != "" && data.Find(parent) < 0 {
		return model.Task{}, fmt.Errorf("parent %s: %w", parent, ErrTaskNotFound)
	}

	task := model.Task{
		ID:     ulid.Make().String(),
		Text:   text,
		Parent: parent,
		Color:  color,
	}
	data.Tasks = append(data.Tasks, task)
	if err := s.Set(data); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Complete marks a task done and clears every synced flag so each provider
// pushes the change on its next cycle.
func (s *Store) Complete(id string) error {
	data, err := s.Get()
	if err != nil {
		return err
	}
	i := data.Find(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	t := &data.Tasks[i]
	t.Completed = true
	t.SyncedNC = false
	t.SyncedGTasks = false
	return s.Set(data)
}
