package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/config"
	"github.com/gessage/gcm/internal/git"
	"github.com/gessage/gcm/internal/logging"
	"github.com/gessage/gcm/internal/platform"
	"github.com/gessage/gcm/internal/ui"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// App encapsulates the CLI surface; keeps logic thin and delegates via DI.
// Zero fields fall back to the real process: stdio, environment, git on
// PATH, the working directory and the wall clock.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
	GOOS    string
	Dir     string
	Runner  git.Runner
	Now     func() time.Time
	Exe     func() (string, error)

	cfg   *config.Config
	log   zerolog.Logger
	flags rootFlags
}

type rootFlags struct {
	config      string
	noCommit    bool
	yes         bool
	suggestions int
	providers   []string
	dryRun      bool
	edit        bool
}

func NewApp() *App {
	return &App{
		In:  os.Stdin,
		Out: color.Output,
		Err: os.Stderr,
	}
}

// Run parses argv and executes the selected command.
func (a *App) Run(ctx context.Context, argv []string) error {
	a.defaults()
	root := a.rootCommand()
	root.SetArgs(argv)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	return root.ExecuteContext(ctx)
}

func (a *App) defaults() {
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.GOOS == "" {
		a.GOOS = runtime.GOOS
	}
	if a.Runner == nil {
		a.Runner = git.ExecRunner{}
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.Exe == nil {
		a.Exe = os.Executable
	}
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gcm",
		Short: "Generate commit messages for your working tree with LLMs",
		Long: "gcm describes the changes in the current repository to an LLM provider " +
			"(OpenRouter, OpenAI or Ollama), formats the suggestions with provenance " +
			"metadata and commits the one you pick.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.runGenerate,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.config, "config", "", "config file (default: ./config.yml, next to the binary, or the user config dir)")
	pf.StringSliceVar(&a.flags.providers, "provider", nil, "providers to use, in priority order (overrides config providers)")

	f := root.Flags()
	f.BoolVar(&a.flags.noCommit, "no-commit", false, "print the chosen message without committing")
	f.BoolVarP(&a.flags.yes, "yes", "y", false, "take the first suggestion without asking")
	f.IntVarP(&a.flags.suggestions, "suggestions", "n", 0, "number of suggestions to collect (default from config)")
	f.BoolVar(&a.flags.dryRun, "dry-run", false, "print the prompt and stop before calling any provider")
	f.BoolVar(&a.flags.edit, "edit", false, "open the chosen message in $EDITOR before committing")

	root.AddCommand(
		a.modelsCommand(),
		a.askCommand(),
		a.envCommand(),
		a.installCommand(),
		a.stampCommand(),
	)
	return root
}

// setup loads .env, the configuration and the logger before any command.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	dir, err := a.workDir()
	if err != nil {
		return err
	}
	if a.Environ == nil {
		if err := config.LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
			return err
		}
	}

	cfg, err := config.Load(config.Options{File: a.flags.config, Environ: a.Environ})
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(a.Err, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.log = log
	a.log.Debug().Str("config", cfg.File).Str("command", cmd.Name()).Msg("configuration loaded")
	return nil
}

func (a *App) workDir() (string, error) {
	if a.Dir != "" {
		return a.Dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "working directory")
	}
	return dir, nil
}

func (a *App) getenv(k string) string {
	if a.Environ != nil {
		return a.Environ[k]
	}
	return os.Getenv(k)
}

func (a *App) environment() platform.Environment {
	return platform.Detect(a.GOOS, a.getenv)
}

// providers builds the clients enabled for this run, in priority order.
func (a *App) providers() ([]ai.Client, error) {
	priority := a.cfg.Providers
	if len(a.flags.providers) > 0 {
		priority = a.flags.providers
	}
	clients, err := ai.Available(priority, ai.Options{Config: a.cfg, Log: a.log, Out: a.Out})
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, errors.New("no provider is configured; set OPENROUTER_API_KEY, OPENAI_API_KEY or OLLAMA_API_KEY")
	}
	return clients, nil
}

// choose uses the arrow-key selector on a real terminal and the numbered
// prompt for any other input.
func (a *App) choose(label string, options []string) (int, error) {
	if f, ok := a.In.(*os.File); ok && f == os.Stdin {
		return ui.Choose(label, options)
	}
	return ui.ChooseNumber(a.In, a.Out, label, options)
}
