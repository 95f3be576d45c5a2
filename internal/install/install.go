package install

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gessage/gcm/internal/platform"
)

// ErrUnsupported is returned for environments without a known startup file.
var ErrUnsupported = errors.New("automatic alias installation is not supported here")

// Target is the startup file to edit and the alias line it must contain.
type Target struct {
	Path string
	Line string
	// Hint is shown after installing, empty when nothing else is needed.
	Hint string
}

// Plan decides where the gcm alias for exe goes. CMD uses a doskey macro in
// %USERPROFILE%\cmdrc.bat; every bash-like shell gets an alias in ~/.bashrc.
func Plan(env platform.Environment, exe string, getenv func(string) string) (Target, error) {
	switch env {
	case platform.Windows:
		profile := getenv("USERPROFILE")
		if profile == "" {
			return Target{}, errors.New("USERPROFILE is not set")
		}
		return Target{
			Path: filepath.Join(profile, "cmdrc.bat"),
			Line: `doskey gcm="` + exe + `" $*`,
			Hint: `Point your CMD shortcut at: %comspec% /k "%USERPROFILE%\cmdrc.bat"`,
		}, nil

	case platform.Linux, platform.MacOS, platform.Cygwin, platform.GitBash:
		home := getenv("HOME")
		if home == "" {
			var err error
			if home, err = os.UserHomeDir(); err != nil {
				return Target{}, errors.Wrap(err, "locate home directory")
			}
		}
		if env == platform.Cygwin || env == platform.GitBash {
			exe = strings.ReplaceAll(exe, `\`, "/")
		}
		return Target{
			Path: filepath.Join(home, ".bashrc"),
			Line: `alias gcm="` + exe + `"`,
		}, nil
	}
	return Target{}, errors.Wrapf(ErrUnsupported, "environment %s", env)
}

// Ensure appends t.Line to t.Path unless the file already contains it.
// added reports whether the file changed.
func Ensure(t Target) (added bool, err error) {
	b, err := os.ReadFile(t.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.Wrapf(err, "read %s", t.Path)
	}
	if strings.Contains(string(b), t.Line) {
		return false, nil
	}
	f, err := os.OpenFile(t.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.Wrapf(err, "open %s", t.Path)
	}
	if _, err := f.WriteString("\n" + t.Line + "\n"); err != nil {
		_ = f.Close()
		return false, errors.Wrapf(err, "append to %s", t.Path)
	}
	return true, errors.Wrapf(f.Close(), "close %s", t.Path)
}
