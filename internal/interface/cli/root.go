package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

var (
	dbPath      string
	configPath  string
	versionInfo string
	version     = "dev"

	overrides = config.NewViper()
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(v, commit, date string) {
	version = v
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "escriba",
	Short: "Write books in GitHub repositories with an LLM at your side",
	Long: `escriba - a markdown writing backend for GitHub

Browse the books/ and references/ folders of your repositories, generate
continuations and revisions with an LLM, and save edits as direct commits
or as pull requests.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the browser if no subcommand specified
		return browseCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", filepath.Join(config.Dir(), "escriba.db"), "Database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "Config file path")
	rootCmd.PersistentFlags().String("token", "", "GitHub personal access token (overrides github.token)")
	_ = overrides.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("token"))
}

// loadConfig reads the config file and applies ESCRIBA_* and flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	config.ApplyOverrides(cfg, overrides)
	return cfg, nil
}

func openDB() (*db.DB, error) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// stateStore picks the persistence backend named by state_backend
func stateStore(cfg *config.Config, database *db.DB) (state.Store, error) {
	switch cfg.StateBackend {
	case "", "sqlite":
		return database, nil
	case "file":
		return state.NewFileStore(cfg.StatePath), nil
	default:
		return nil, fmt.Errorf("unknown state_backend %q (want sqlite or file)", cfg.StateBackend)
	}
}

// githubClient uses the configured personal access token
func githubClient(cfg *config.Config) (*github.Client, error) {
	if cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("no GitHub token: set github.token in %s, ESCRIBA_GITHUB_TOKEN or --token", cfg.File())
	}
	return github.NewClient(cfg.GitHub.Token,
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithUserAgent(userAgent())), nil
}

func userAgent() string {
	return "escriba/" + version
}

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// workspace bundles what most commands need
type workspace struct {
	cfg    *config.Config
	db     *db.DB
	state  *state.Guarded
	github *github.Client
}

func openWorkspace(needGitHub bool) (*workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	database, err := openDB()
	if err != nil {
		return nil, err
	}
	store, err := stateStore(cfg, database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	ws := &workspace{cfg: cfg, db: database, state: state.NewGuarded(store)}
	if needGitHub {
		ws.github, err = githubClient(cfg)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
	}
	return ws, nil
}

func (w *workspace) Close() {
	_ = w.db.Close()
}

// resolveRef returns ref, else the project's recorded default branch, else
// the repository's default branch
func (w *workspace) resolveRef(ctx context.Context, p models.Project, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	st, err := w.state.Load(ctx)
	if err != nil {
		return "", err
	}
	if known, ok := st.Project(p.Key()); ok && known.DefaultBranch != "" {
		return known.DefaultBranch, nil
	}
	repo, err := w.github.GetRepository(ctx, p.Owner, p.Repo)
	if err != nil {
		return "", err
	}
	return repo.DefaultBranch, nil
}

// bindOverride lets a command flag override a config key through viper
func bindOverride(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
