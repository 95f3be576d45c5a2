package cli

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/ai/models"
	"github.com/gessage/gcm/internal/format"
	"github.com/gessage/gcm/internal/git"
	"github.com/gessage/gcm/internal/install"
	"github.com/gessage/gcm/internal/platform"
	"github.com/gessage/gcm/internal/version"
)

func (a *App) modelsCommand() *cobra.Command {
	var (
		strategy string
		top      int
	)
	cmd := &cobra.Command{
		Use:   "models [provider...]",
		Short: "List the models offered by the configured providers",
		Long: "List the models each provider can serve. For OpenRouter this is the free, " +
			"non-blacklisted part of the catalog; --strategy shows the ranked candidates " +
			"a selection keyword such as FreeTop would try.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := args
			if len(names) == 0 {
				names = a.cfg.Providers
				if len(a.flags.providers) > 0 {
					names = a.flags.providers
				}
			}
			title := color.New(color.FgCyan, color.Bold)
			dim := color.New(color.FgHiBlack)

			for _, name := range names {
				p, ok := ai.ProviderFor(name)
				if !ok {
					return errors.Newf("unknown provider %q; known: %v", name, ai.Known())
				}
				if p.Available != nil && !p.Available(a.cfg) {
					dim.Fprintf(a.Out, "⚪ %s: not configured\n", p.Name)
					continue
				}
				client, err := ai.Create(name, ai.Options{Config: a.cfg, Log: a.log, Out: io.Discard})
				if err != nil {
					return err
				}
				title.Fprintf(a.Out, "🤖 %s\n", p.Name)

				switch c := client.(type) {
				case *models.OpenRouter:
					if strategy != "" {
						st, ok := models.ParseStrategy(strategy)
						if !ok {
							return errors.Newf("unknown strategy %q (FreeAll, FreeTop, FreeCtxMax, FreeSmart, FreeRandom)", strategy)
						}
						ids, err := c.Select(ctx, st, top)
						if err != nil {
							return err
						}
						for i, id := range ids {
							fmt.Fprintf(a.Out, "  %2d. %s\n", i+1, id)
						}
						continue
					}
					catalog, err := c.Catalog(ctx)
					if err != nil {
						return err
					}
					for _, m := range catalog {
						fmt.Fprintf(a.Out, "  🧠 %-60s %8s params %9d ctx\n", m.ID, paramLabel(m.SizeMillions), m.ContextLength)
					}
					dim.Fprintf(a.Out, "  %d free models\n", len(catalog))
				case ai.ModelLister:
					ids, err := c.ListModels(ctx)
					if err != nil {
						return err
					}
					for _, id := range ids {
						fmt.Fprintf(a.Out, "  🧠 %s\n", id)
					}
				default:
					dim.Fprintln(a.Out, "  (listing not supported)")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "rank OpenRouter models with a selection keyword")
	cmd.Flags().IntVar(&top, "top", 5, "number of ranked OpenRouter models to show")
	return cmd
}

func paramLabel(millions int) string {
	switch {
	case millions == 0:
		return "?"
	case millions >= 1000:
		return fmt.Sprintf("%gB", float64(millions)/1000)
	default:
		return fmt.Sprintf("%dM", millions)
	}
}

func (a *App) askCommand() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a free-form prompt to the configured providers",
		Long:  "Send a prompt (the arguments, or stdin when none are given) through the same provider rotation used for commit messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				b, err := io.ReadAll(bufio.NewReader(a.In))
				if err != nil {
					return errors.Wrap(err, "read prompt")
				}
				prompt = strings.TrimSpace(string(b))
			}
			if prompt == "" {
				return errors.New("empty prompt")
			}
			prompt = a.redact(prompt)

			clients, err := a.providers()
			if err != nil {
				return err
			}
			results := ai.Rotate(cmd.Context(), clients, prompt, max(n, 1), a.log)
			if len(results) == 0 {
				return errors.New("no provider answered")
			}
			for _, r := range results {
				fmt.Fprintln(a.Out)
				color.New(color.FgCyan).Fprintf(a.Out, "🤖 %s 🧠 %s | ⏱️: %.2f secs\n", r.Provider, r.Model, r.Elapsed.Seconds())
				fmt.Fprintln(a.Out, r.Text)
				if u := format.FormatUsage(r.Usage); u != "" {
					fmt.Fprintln(a.Out, u)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "answers", "n", 1, "number of answers to collect")
	return cmd
}

func (a *App) envCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the detected shell environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := a.environment()
			fmt.Fprintf(a.Out, "Detected environment: %s %s %s\n", format.EnvironmentEmoji, env, env.Emoji(a.cfg.Emojis))
			fmt.Fprintf(a.Out, "Machine: 💻 %s\n", platform.Machine())
			return nil
		},
	}
}

func (a *App) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Add a gcm alias to your shell startup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, err := a.Exe()
			if err != nil {
				return errors.Wrap(err, "locate gcm executable")
			}
			if abs, err := filepath.Abs(exe); err == nil {
				exe = abs
			}

			env := a.environment()
			fmt.Fprintf(a.Out, "Detected environment: %s %s\n", env, env.Emoji(a.cfg.Emojis))
			target, err := install.Plan(env, exe, a.getenv)
			if err != nil {
				return err
			}
			added, err := install.Ensure(target)
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(a.Out, "✔️ Alias 'gcm' already configured in %s.\n", target.Path)
				return nil
			}
			color.New(color.FgGreen).Fprintf(a.Out, "✅ Alias 'gcm' added to %s.\n", target.Path)
			if target.Hint != "" {
				fmt.Fprintln(a.Out, "📌 "+target.Hint)
			}
			return nil
		},
	}
}

func (a *App) stampCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stamp",
		Short: "Write the version file described by version.cfg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.workDir()
			if err != nil {
				return err
			}
			repo, err := git.Open(dir, a.Runner)
			if err != nil {
				return err
			}
			path := filepath.Join(repo.Dir(), version.ConfigFile)
			vcfg, found, err := version.LoadConfig(path)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(a.Out, "⚠️ Version configuration not found: %s. It's okay, it's optional.\n", version.ConfigFile)
				return nil
			}
			res, err := version.Stamp(cmd.Context(), repo.Dir(), vcfg, repo, a.Now())
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Fprintf(a.Out, "ℹ️ Mode %q does not stamp a version.\n", vcfg.Mode)
				return nil
			}
			fmt.Fprintf(a.Out, "🆙 Updated version: %s → saved in %s\n", res.Version, res.File)
			if res.Badge != "" {
				fmt.Fprintf(a.Out, "🏷️ Badge created: %s\n", res.Badge)
			}
			return nil
		},
	}
}
