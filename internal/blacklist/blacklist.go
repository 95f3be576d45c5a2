// Package blacklist keeps the set of model ids known to be unavailable. The
// set is persisted as an append-only file with one id per line.
package blacklist

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// List is an in-memory view over the blacklist file.
type List struct {
	path string
	ids  map[string]struct{}
}

// Load reads every id from path. A missing file is an empty list.
func Load(path string) (*List, error) {
	l := &List{path: path, ids: map[string]struct{}{}}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the file, picking up ids appended by other runs.
func (l *List) Reload() error {
	ids := map[string]struct{}{}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.ids = ids
			return nil
		}
		return errors.Wrap(err, "open blacklist")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read blacklist")
	}
	l.ids = ids
	return nil
}

// Contains reports whether id is blacklisted.
func (l *List) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Add appends id to the file and the in-memory set. The file is never
// rewritten, so ids added by concurrent runs may appear more than once.
func (l *List) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("empty model id")
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create blacklist dir")
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open blacklist")
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		f.Close()
		return errors.Wrap(err, "append blacklist")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close blacklist")
	}
	l.ids[id] = struct{}{}
	return nil
}

// IDs returns the blacklisted ids in no particular order.
func (l *List) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	return out
}

// Len is the number of distinct ids.
func (l *List) Len() int { return len(l.ids) }

// Path is the backing file.
func (l *List) Path() string { return l.path }
