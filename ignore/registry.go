package ignore

import (
	"bufio"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/constants"
)

// Registry is the persisted, append-only set of table identifiers to skip.
// Identifiers are lowercase "schema.table" strings.
type Registry struct {
	mu      sync.Mutex
	path    string
	entries map[string]struct{}
	order   []string
}

// Load reads the ignore file at path.
// A missing file is an empty registry, and the file is created on the first Add.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, entries: make(map[string]struct{})}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open ignore file %v", path)
	}
	defer func() {
		_ = f.Close()
	}()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() { // for each line...
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, constants.IgnoreFileCommentPrefix) {
			continue
		}
		r.insert(strings.ToLower(line))
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "unable to read ignore file %v", path)
	}
	return r, nil
}

// Path returns the file backing the registry.
func (r *Registry) Path() string {
	return r.path
}

func (r *Registry) insert(id string) bool {
	if _, ok := r.entries[id]; ok {
		return false
	}
	r.entries[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// Contains reports whether id is ignored, comparing case-insensitively.
// A bare table name in the file matches a schema-qualified id with the same table name.
func (r *Registry) Contains(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return true
	}
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		_, ok := r.entries[id[idx+1:]]
		return ok
	}
	return false
}

// Add appends id to the file and syncs it before returning.
// Adding an identifier that is already present does nothing.
func (r *Registry) Add(id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return errors.New("cannot ignore an empty table name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return nil
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "unable to open ignore file %v", r.path)
	}
	line := id + "\n"
	if needsNewline(f) { // if a hand-edited file lacks its final newline...
		line = "\n" + line
	}
	if _, err = f.WriteString(line); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "unable to write to ignore file %v", r.path)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "unable to sync ignore file %v", r.path)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "unable to close ignore file %v", r.path)
	}
	r.insert(id)
	return nil
}

func needsNewline(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil || fi.Size() == 0 {
		return false
	}
	b := make([]byte, 1)
	if _, err = f.ReadAt(b, fi.Size()-1); err != nil {
		return false
	}
	return b[0] != '\n'
}

// List returns the identifiers in the order they were added.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Sorted returns the identifiers in alphabetical order.
func (r *Registry) Sorted() []string {
	l := r.List()
	sort.Strings(l)
	return l
}

// Len returns the number of identifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
