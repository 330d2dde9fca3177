package orgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/funnelhq/funnel/pkg/api"
)

// FileStore persists organization context to a JSON state file. Other
// processes sharing the same file (a second CLI invocation, the sync daemon)
// observe switches through an fsnotify watch on the state file's directory.
type FileStore struct {
	path string

	mu    sync.Mutex
	state snapshot
	subs  []chan Event

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileStore opens (or creates) the state file at path and starts watching
// it for external changes.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &FileStore{
		path: path,
		done: make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory, not the file: editors and atomic renames replace
	// the inode and would silently drop a file-level watch.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}
	var st snapshot
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("corrupt state file %s: %w", s.path, err)
	}
	s.state = st
	return nil
}

// persist writes the state atomically via temp file + rename. Caller holds
// the lock.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.reload()
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// reload re-reads the file after an external change and broadcasts if the
// active organization moved.
func (s *FileStore) reload() {
	s.mu.Lock()
	prev := s.state.ActiveID
	if err := s.load(); err != nil {
		s.mu.Unlock()
		return
	}
	changed := s.state.ActiveID != prev
	ev := Event{ActiveID: s.state.ActiveID}
	subs := s.subscribers()
	s.mu.Unlock()

	if changed {
		notify(subs, ev)
	}
}

// subscribers snapshots the subscriber list. Caller holds the lock.
func (s *FileStore) subscribers() []chan Event {
	out := make([]chan Event, len(s.subs))
	copy(out, s.subs)
	return out
}

// ActiveID implements Store
func (s *FileStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveID
}

// Active implements Store
func (s *FileStore) Active() (api.Organization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Active == nil {
		return api.Organization{}, false
	}
	return *s.state.Active, true
}

// Organizations implements Store
func (s *FileStore) Organizations() []api.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Organization, len(s.state.Organizations))
	copy(out, s.state.Organizations)
	return out
}

// SetOrganizationList implements Store
func (s *FileStore) SetOrganizationList(_ context.Context, orgs []api.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Organizations = append([]api.Organization(nil), orgs...)
	if s.state.ActiveID == "" && len(orgs) > 0 {
		first := orgs[0]
		s.state.ActiveID = first.ID
		s.state.Active = &first
	}
	return s.persist()
}

// SetActive implements Store
func (s *FileStore) SetActive(_ context.Context, org api.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveID = org.ID
	s.state.Active = &org
	return s.persist()
}

// SwitchActive implements Store
func (s *FileStore) SwitchActive(_ context.Context, id string) bool {
	s.mu.Lock()
	org, ok := s.state.find(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state.ActiveID = org.ID
	s.state.Active = &org
	err := s.persist()
	subs := s.subscribers()
	s.mu.Unlock()

	if err == nil {
		notify(subs, Event{ActiveID: org.ID})
	}
	return true
}

// Clear implements Store
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = snapshot{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// Subscribe implements Store
func (s *FileStore) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Close implements Store
func (s *FileStore) Close() error {
	close(s.done)
	return s.watcher.Close()
}
