package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is one persisted summary note.
type Note struct {
	ID        string
	Parent    string // source document the note belongs to
	Title     string
	HTML      string
	CreatedAt time.Time
}

// Store persists notes as HTML files in a directory, one file per note.
type Store struct {
	dir string
}

// NewStore creates a note store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("note store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create note store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create builds a note for the given parent document and persists it,
// returning the stored note with its generated ID.
func (s *Store) Create(parent, title, html string) (*Note, error) {
	note := &Note{
		ID:        uuid.New().String(),
		Parent:    parent,
		Title:     title,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.write(note); err != nil {
		return nil, err
	}
	return note, nil
}

// write persists the note atomically via a temp-file rename so a crashed
// run never leaves a half-written note behind.
func (s *Store) write(note *Note) error {
	path := s.notePath(note)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, []byte(note.HTML), 0640); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize note: %w", err)
	}
	return nil
}

// notePath derives a readable, collision-free file name from the parent
// document and the note ID.
func (s *Store) notePath(note *Note) string {
	base := strings.TrimSuffix(filepath.Base(note.Parent), filepath.Ext(note.Parent))
	base = sanitizeFileName(base)
	if base == "" {
		base = "note"
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.html", base, shortID(note.ID)))
}

// List returns the file names of all stored notes, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read note store: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func sanitizeFileName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '.':
			sb.WriteRune('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
