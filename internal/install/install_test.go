package install

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gessage/gcm/internal/platform"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestPlan(t *testing.T) {
	tg, err := Plan(platform.Linux, "/usr/local/bin/gcm", env(map[string]string{"HOME": "/home/u"}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/u", ".bashrc"), tg.Path)
	assert.Equal(t, `alias gcm="/usr/local/bin/gcm"`, tg.Line)

	tg, err = Plan(platform.GitBash, `C:\tools\gcm.exe`, env(map[string]string{"HOME": "/c/Users/u"}))
	require.NoError(t, err)
	assert.Equal(t, `alias gcm="C:/tools/gcm.exe"`, tg.Line)

	tg, err = Plan(platform.Windows, `C:\tools\gcm.exe`, env(map[string]string{"USERPROFILE": "profile"}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("profile", "cmdrc.bat"), tg.Path)
	assert.Equal(t, `doskey gcm="C:\tools\gcm.exe" $*`, tg.Line)
	assert.NotEmpty(t, tg.Hint)

	_, err = Plan(platform.Windows, "gcm.exe", env(nil))
	assert.Error(t, err)

	_, err = Plan(platform.Unknown, "gcm", env(nil))
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestEnsureIsIdempotent(t *testing.T) {
	home := t.TempDir()
	rc := filepath.Join(home, ".bashrc")
	require.NoError(t, os.WriteFile(rc, []byte("export PATH=$PATH:~/bin\n"), 0o644))

	tg, err := Plan(platform.MacOS, "/opt/gcm", env(map[string]string{"HOME": home}))
	require.NoError(t, err)

	added, err := Ensure(tg)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = Ensure(tg)
	require.NoError(t, err)
	assert.False(t, added)

	b, err := os.ReadFile(rc)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), tg.Line))
	assert.True(t, strings.HasPrefix(string(b), "export PATH"))
}

func TestEnsureCreatesFile(t *testing.T) {
	tg := Target{Path: filepath.Join(t.TempDir(), "cmdrc.bat"), Line: `doskey gcm="gcm.exe" $*`}
	added, err := Ensure(tg)
	require.NoError(t, err)
	assert.True(t, added)

	b, err := os.ReadFile(tg.Path)
	require.NoError(t, err)
	assert.Equal(t, "\n"+tg.Line+"\n", string(b))
}
