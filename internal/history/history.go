package history

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Separator closes every entry in the history file.
var Separator = strings.Repeat("-", 80)

// Append adds msg to the history log at path, creating the file and its
// directory when missing.
func Append(path, msg string) error {
	if path == "" {
		return errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create history dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open history")
	}
	if _, err := f.WriteString(msg + "\n" + Separator + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write history")
	}
	return errors.Wrap(f.Close(), "close history")
}
