package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/format"
	"github.com/gessage/gcm/internal/git"
	"github.com/gessage/gcm/internal/history"
	"github.com/gessage/gcm/internal/platform"
	"github.com/gessage/gcm/internal/sanitize"
	"github.com/gessage/gcm/internal/ui"
	"github.com/gessage/gcm/internal/version"
)

// suggestion is a provider answer rendered as a full commit message.
type suggestion struct {
	result  ai.QueryResult
	message string
}

func (a *App) runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	// Step 1: locate the work tree
	dir, err := a.workDir()
	if err != nil {
		return err
	}
	repo, err := git.Open(dir, a.Runner)
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			return errors.Wrap(err, "❌ this directory is not inside a Git repository")
		}
		return err
	}

	env := a.environment()
	envEmoji := env.Emoji(cfg.Emojis)
	machine := platform.Machine()
	a.log.Debug().Str("env", string(env)).Str("machine", machine).Str("repo", repo.Dir()).Msg("environment detected")

	// Step 2: version stamp, when the repository asks for one
	if !a.flags.dryRun {
		a.stamp(ctx, repo)
	}

	// Step 3: classify the working tree
	lines, err := repo.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "read git status")
	}
	changes := format.ClassifyChanges(lines)
	if changes.Empty() {
		fmt.Fprintln(a.Out, "ℹ️ No changes detected. Nothing to do.")
		return nil
	}

	// Step 4: build the prompt
	diff := repo.DiffShortstat(ctx)
	prompt := format.BuildPrompt(cfg.PromptTemplate, changes, diff)
	prompt = a.redact(prompt)
	if a.flags.dryRun {
		color.New(color.FgCyan, color.Bold).Fprintln(a.Out, "=== [PROMPT] ===")
		fmt.Fprintln(a.Out, prompt)
		return nil
	}

	// Step 5: collect suggestions
	clients, err := a.providers()
	if err != nil {
		return err
	}
	n := cfg.SuggestedMessages
	if a.flags.suggestions > 0 {
		n = a.flags.suggestions
	}
	results := ai.Rotate(ctx, clients, prompt, n, a.log)
	if len(results) == 0 {
		return errors.New("⚠️ there are no suggested commit messages")
	}

	number := repo.NextCommitNumber(ctx)
	now := a.Now()
	suggestions := make([]suggestion, len(results))
	for i, res := range results {
		suggestions[i] = suggestion{
			result:  res,
			message: format.Compose(format.Input{
				Changes:       changes,
				DiffSummary:   diff,
				Suggestion:    res.Text,
				MaxCharacters: cfg.MaxCharacters,
				Env:           string(env),
				EnvEmoji:      envEmoji,
				Machine:       machine,
				Provider:      res.Provider,
				Model:         res.Model,
				Elapsed:       res.Elapsed,
				CommitNumber:  number,
				Time:          now,
				Emojis:        cfg.Emojis,
			}),
		}
	}
	a.printSuggestions(suggestions)

	// Step 6: pick one
	msg := suggestions[0].message
	if cfg.UseConfirmation && !a.flags.yes {
		options := make([]string, len(suggestions))
		for i, s := range suggestions {
			options[i] = fmt.Sprintf("🤖 %s 🧠 %s", s.result.Provider, s.result.Model)
		}
		idx, err := a.choose("✅ Which message do you want to commit?", options)
		if err != nil {
			return err
		}
		if idx < 0 {
			color.New(color.FgYellow).Fprintln(a.Out, "🚫 Commit canceled by user.")
			return nil
		}
		msg = suggestions[idx].message
	}

	if a.flags.edit {
		if msg, err = ui.EditInEditor(msg); err != nil {
			return err
		}
	}

	if a.flags.noCommit {
		color.New(color.FgWhite, color.Bold).Fprintln(a.Out, "\n[NO-COMMIT] Final message:")
		fmt.Fprintln(a.Out, msg)
		return nil
	}

	// Step 7: commit
	return a.commit(ctx, repo, msg)
}

func (a *App) redact(prompt string) string {
	if !a.cfg.RedactPrompt {
		return prompt
	}
	out, stats := sanitize.Redact(prompt)
	if stats.Total() > 0 {
		a.log.Warn().Int("count", stats.Total()).Strs("rules", stats.Rules()).Msg("redacted secrets from prompt")
	}
	return out
}

func (a *App) stamp(ctx context.Context, repo *git.Repo) {
	vcfg, found, err := version.LoadConfig(filepath.Join(repo.Dir(), version.ConfigFile))
	if err != nil {
		a.log.Warn().Err(err).Msg("version config unreadable, skipping stamp")
		return
	}
	if !found {
		a.log.Debug().Msg("no version.cfg, skipping stamp")
		return
	}
	res, err := version.Stamp(ctx, repo.Dir(), vcfg, repo, a.Now())
	if err != nil {
		a.log.Warn().Err(err).Msg("version stamp failed")
	}
	if res != nil {
		fmt.Fprintf(a.Out, "🔖 Version: %s → saved in %s\n", res.Version, res.File)
		if res.Badge != "" {
			fmt.Fprintf(a.Out, "🏷️ Badge created: %s\n", res.Badge)
		}
	}
}

func (a *App) printSuggestions(suggestions []suggestion) {
	width := ui.Width()
	fmt.Fprintln(a.Out, "\n📝 Suggested Commit Message:")
	fmt.Fprintln(a.Out)
	for i, s := range suggestions {
		idx := strconv.Itoa(i + 1)
		fmt.Fprintf(a.Out, "[ %s ]%s\n", idx, ui.Rule("-", width-len(idx)-4))
		fmt.Fprintln(a.Out, s.message)
		if s.result.Usage != nil {
			fmt.Fprintln(a.Out, ui.Rule("-", width))
			fmt.Fprintln(a.Out, format.FormatUsage(s.result.Usage))
		}
		fmt.Fprintln(a.Out, ui.Rule("=", width))
	}
}

func (a *App) commit(ctx context.Context, repo *git.Repo, msg string) error {
	staged, err := repo.HasStaged(ctx)
	if err != nil {
		return errors.Wrap(err, "check staged changes")
	}
	if !staged {
		fmt.Fprintln(a.Out, "ℹ️ No changes staged. Running: git add .")
		if err := repo.AddAll(ctx); err != nil {
			return errors.Wrap(err, "stage changes")
		}
	}
	if err := repo.Commit(ctx, msg); err != nil {
		return errors.Wrap(err, "❌ git commit failed")
	}
	color.New(color.FgGreen).Fprintln(a.Out, "✅ Commit successfully completed.")

	if a.cfg.SaveHistory {
		if err := history.Append(a.cfg.HistoryPath, msg); err != nil {
			color.New(color.FgYellow).Fprintf(a.Out, "⚠️ Could not save history: %v\n", err)
			a.log.Warn().Err(err).Str("path", a.cfg.HistoryPath).Msg("history not saved")
		}
	}
	return nil
}

