package git

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned by Open outside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Runner executes a git subcommand in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner shells out to the git binary on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Repo runs the handful of git commands gcm needs against one work tree.
type Repo struct {
	dir string
	run Runner
}

// New wraps dir without checking that it is a repository.
func New(dir string, run Runner) *Repo {
	if run == nil {
		run = ExecRunner{}
	}
	return &Repo{dir: dir, run: run}
}

// Open finds the work tree containing dir, walking up to the first .git.
func Open(dir string, run Runner) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, errors.Wrapf(ErrNotRepository, "%s", dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open repository at %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "bare repositories have no work tree")
	}
	return New(wt.Filesystem.Root(), run), nil
}

// Dir is the root of the work tree.
func (r *Repo) Dir() string { return r.dir }

// Status returns the lines of `git status --porcelain`.
func (r *Repo) Status(ctx context.Context) ([]string, error) {
	out, err := r.run.Run(ctx, r.dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, ln)
		}
	}
	return lines, nil
}

// DiffShortstat returns `git diff --shortstat`, or "" when git fails.
func (r *Repo) DiffShortstat(ctx context.Context) string {
	out, err := r.run.Run(ctx, r.dir, "diff", "--shortstat")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// CommitCount is the number of commits reachable from HEAD.
func (r *Repo) CommitCount(ctx context.Context) (int, error) {
	out, err := r.run.Run(ctx, r.dir, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, errors.Wrapf(err, "parse commit count %q", strings.TrimSpace(out))
	}
	return n, nil
}

// NextCommitNumber is CommitCount+1, or 1 when the count is unavailable
// (for instance before the first commit).
func (r *Repo) NextCommitNumber(ctx context.Context) int {
	n, err := r.CommitCount(ctx)
	if err != nil {
		return 1
	}
	return n + 1
}

// HasStaged reports whether the index differs from HEAD.
func (r *Repo) HasStaged(ctx context.Context) (bool, error) {
	out, err := r.run.Run(ctx, r.dir, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.run.Run(ctx, r.dir, "add", ".")
	return err
}

func (r *Repo) Commit(ctx context.Context, msg string) error {
	_, err := r.run.Run(ctx, r.dir, "commit", "-m", msg)
	return err
}
