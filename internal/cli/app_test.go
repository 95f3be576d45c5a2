package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/config"
	"github.com/gessage/gcm/internal/git"
)

// fakeProvider answers every query with a new model name.
type fakeProvider struct {
	text  string
	calls int
}

func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) Query(context.Context, string) ai.QueryResult {
	f.calls++
	status := ai.StatusOK
	if f.text == "" {
		status = 503
	}
	return ai.QueryResult{
		Provider:   "Fake",
		StatusCode: status,
		Model:      fmt.Sprintf("m%d", f.calls),
		Text:       f.text,
		Usage:      &ai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		Elapsed:    1500 * time.Millisecond,
	}
}

var current *fakeProvider

func init() {
	ai.Register(ai.Provider{
		Name:        "Fake",
		Constructor: func(ai.Options) (ai.Client, error) { return current, nil },
		Available:   func(*config.Config) bool { return true },
	})
}

type recordingRunner struct {
	out   map[string]string
	calls []string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)
	if out, ok := r.out[key]; ok {
		return out, nil
	}
	if args[0] == "rev-list" {
		return "", errors.New("no HEAD")
	}
	return "", nil
}

func (r *recordingRunner) called(prefix string) []string {
	var out []string
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	root   string
	cfg    string
	hist   string
	runner *recordingRunner
	out    *bytes.Buffer
}

func newFixture(t *testing.T, extraConfig string) *fixture {
	t.Helper()
	current = &fakeProvider{text: "feat: add greeting\nSummary: greeting printed"}

	root := t.TempDir()
	_, err := gogit.PlainInit(root, false)
	require.NoError(t, err)

	tmp := t.TempDir()
	hist := filepath.Join(tmp, "history.log")
	cfg := filepath.Join(tmp, "config.yml")
	keys := []string{"providers", "save_history", "history_path"}
	top := map[string]string{
		"providers":    "[Fake]",
		"save_history": "true",
		"history_path": hist,
	}
	for _, ln := range strings.Split(strings.TrimSpace(extraConfig), "\n") {
		k, v, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		if _, seen := top[k]; !seen {
			keys = append(keys, k)
		}
		top[k] = strings.TrimSpace(v)
	}
	var yml strings.Builder
	for _, k := range keys {
		yml.WriteString(k + ": " + top[k] + "\n")
	}
	yml.WriteString("openrouter:\n  blacklist_path: " + filepath.Join(tmp, "bl.txt") + "\n")
	yml.WriteString("log:\n  level: error\n")
	require.NoError(t, os.WriteFile(cfg, []byte(yml.String()), 0o644))

	return &fixture{
		root: root,
		cfg:  cfg,
		hist: hist,
		runner: &recordingRunner{out: map[string]string{
			"status --porcelain":    " M main.go\n?? greet.go\n",
			"diff --shortstat":      " 1 file changed, 3 insertions(+)\n",
			"rev-list --count HEAD": "9\n",
		}},
		out: &bytes.Buffer{},
	}
}

func (f *fixture) app(in string) *App {
	return &App{
		In:      strings.NewReader(in),
		Out:     f.out,
		Err:     io.Discard,
		Environ: map[string]string{"HOME": f.root},
		GOOS:    "linux",
		Dir:     f.root,
		Runner:  f.runner,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		Exe:     func() (string, error) { return "/opt/gcm/gcm", nil },
	}
}

func (f *fixture) run(t *testing.T, in string, args ...string) error {
	t.Helper()
	return f.app(in).Run(context.Background(), append([]string{"--config", f.cfg}, args...))
}

func TestGenerateCommitsWithoutConfirmation(t *testing.T) {
	f := newFixture(t, "use_confirmation: false\n")
	require.NoError(t, f.run(t, ""))

	commits := f.runner.called("commit -m ")
	require.Len(t, commits, 1)
	msg := strings.TrimPrefix(commits[0], "commit -m ")

	assert.Contains(t, msg, `🔀: 🆕: "greet.go"; 📝: "main.go"`)
	assert.Contains(t, msg, "ℹ️: ✨: add greeting")
	assert.Contains(t, msg, "🎯: Summary: greeting printed")
	assert.Contains(t, msg, "🆔: 000,000,010 | 🕒: 2025-06-01 12:00:00.000 | 🌐: LINUX | 🤖: Fake 🧠: m1 | ⏱️: 1.50 secs")
	assert.Equal(t, []string{"add ."}, f.runner.called("add"))

	out := f.out.String()
	assert.Contains(t, out, "📝 Suggested Commit Message:")
	assert.Contains(t, out, "📊 Tokens used: 📝 Prompt=3, 💬 Response=2, 🧮 Total=5")
	assert.Contains(t, out, "✅ Commit successfully completed.")

	hist, err := os.ReadFile(f.hist)
	require.NoError(t, err)
	assert.Equal(t, msg+"\n"+strings.Repeat("-", 80)+"\n", string(hist))
}

func TestGenerateSkipsAddWhenStaged(t *testing.T) {
	f := newFixture(t, "use_confirmation: false\nsave_history: false\n")
	f.runner.out["diff --cached --name-only"] = "main.go\n"
	require.NoError(t, f.run(t, ""))

	assert.Empty(t, f.runner.called("add"))
	assert.Len(t, f.runner.called("commit"), 1)
	_, err := os.Stat(f.hist)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateChoosesSuggestion(t *testing.T) {
	f := newFixture(t, "suggested_messages: 2\n")
	require.NoError(t, f.run(t, "7\n2\n"))

	commits := f.runner.called("commit -m ")
	require.Len(t, commits, 1)
	assert.Contains(t, commits[0], "🧠: m2")
	assert.Equal(t, 2, current.calls)
}

func TestGenerateCancel(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "0\n"))

	assert.Empty(t, f.runner.called("commit"))
	assert.Contains(t, f.out.String(), "Commit canceled by user")
}

func TestGenerateNoCommitFlag(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "--yes", "--no-commit"))

	assert.Empty(t, f.runner.called("commit"))
	assert.Contains(t, f.out.String(), "[NO-COMMIT] Final message:")
}

func TestGenerateDryRun(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "--dry-run"))

	out := f.out.String()
	assert.Contains(t, out, "=== [PROMPT] ===")
	assert.Contains(t, out, `Add: "greet.go"; Change: "main.go"`)
	assert.Contains(t, out, "1 file changed, 3 insertions(+)")
	assert.Zero(t, current.calls)
	assert.Empty(t, f.runner.called("commit"))
}

func TestGenerateNoChanges(t *testing.T) {
	f := newFixture(t, "")
	f.runner.out["status --porcelain"] = ""
	require.NoError(t, f.run(t, ""))

	assert.Contains(t, f.out.String(), "No changes detected")
	assert.Zero(t, current.calls)
}

func TestGenerateNoSuggestions(t *testing.T) {
	f := newFixture(t, "")
	current.text = ""
	err := f.run(t, "")
	require.Error(t, err)

	f = newFixture(t, "providers: []\n")
	assert.Error(t, f.run(t, ""))
}

func TestGenerateOutsideRepository(t *testing.T) {
	f := newFixture(t, "")
	a := f.app("")
	a.Dir = t.TempDir()
	err := a.Run(context.Background(), []string{"--config", f.cfg})
	require.Error(t, err)
	assert.True(t, errors.Is(err, git.ErrNotRepository))
}

func TestGenerateStampsVersion(t *testing.T) {
	f := newFixture(t, "use_confirmation: false\n")
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "version.cfg"), []byte("mode: commits\n"), 0o644))
	require.NoError(t, f.run(t, ""))

	b, err := os.ReadFile(filepath.Join(f.root, "version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "000,000,010", string(b))
	assert.Contains(t, f.out.String(), "🔖 Version: 000,000,010")
}

func TestStampCommand(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "stamp"))
	assert.Contains(t, f.out.String(), "Version configuration not found")

	require.NoError(t, os.Mkdir(filepath.Join(f.root, ".badges"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "version.cfg"), []byte("mode: date\nfile: VERSION\n"), 0o644))
	require.NoError(t, f.run(t, "", "stamp"))

	b, err := os.ReadFile(filepath.Join(f.root, "VERSION"))
	require.NoError(t, err)
	assert.Equal(t, "20250601120000", string(b))
	assert.FileExists(t, filepath.Join(f.root, ".badges", "version.json"))
}

func TestEnvCommand(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "env"))
	assert.Contains(t, f.out.String(), "Detected environment: 🌐 LINUX 🐧")
}

func TestInstallCommand(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "install"))
	require.NoError(t, f.run(t, "", "install"))

	b, err := os.ReadFile(filepath.Join(f.root, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), `alias gcm="/opt/gcm/gcm"`))
	assert.Contains(t, f.out.String(), "already configured")
}

func TestAskCommand(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "why is the sky blue?\n", "ask"))

	out := f.out.String()
	assert.Contains(t, out, "🤖 Fake 🧠 m1")
	assert.Contains(t, out, "feat: add greeting")
	assert.Equal(t, 1, current.calls)
}

func TestModelsCommandReportsUnconfigured(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.run(t, "", "models", "OpenAI", "Ollama"))
	out := f.out.String()
	assert.Contains(t, out, "OpenAI: not configured")
	assert.Contains(t, out, "Ollama: not configured")

	assert.Error(t, f.run(t, "", "models", "Nope"))
}
