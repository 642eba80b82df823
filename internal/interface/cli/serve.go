package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/auth"
	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/interface/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the Escriba JSON API.

With github.token configured every request acts as that token's user.
Otherwise browsers log in through the GitHub OAuth app configured in
[github] client_id/client_secret (or saved in settings).

Prompt templates and LLM settings are reloaded when the config file changes.

Examples:
  escriba serve
  escriba serve --listen 0.0.0.0:8420
  ESCRIBA_GITHUB_TOKEN=ghp_... escriba serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to listen on (default from config)")
	serveCmd.Flags().String("public-url", "", "Base URL browsers reach the server at")
	bindOverride(overrides, "listen", serveCmd, "listen")
	bindOverride(overrides, "public_url", serveCmd, "public-url")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	store, err := stateStore(cfg, database)
	if err != nil {
		return err
	}

	sessions := auth.NewSessions(database)
	if cfg.GitHub.Token != "" {
		client, err := githubClient(cfg)
		if err != nil {
			return err
		}
		user, err := client.GetUser(ctx)
		if err != nil {
			return fmt.Errorf("github.token rejected: %w", err)
		}
		sessions.WithStaticToken(cfg.GitHub.Token, user.Login)
		log.Printf("Using personal access token for %s", user.Login)
	} else if n, err := sessions.Purge(); err != nil {
		log.Printf("Warning: failed to purge expired sessions: %v", err)
	} else if n > 0 {
		log.Printf("Purged %d expired sessions", n)
	}

	server := web.NewServer(web.Options{
		Config:    cfg,
		DB:        database,
		State:     store,
		Sessions:  sessions,
		UserAgent: userAgent(),
	})

	go func() {
		err := config.Watch(ctx, cfg.File(), func(next *config.Config) {
			config.ApplyOverrides(next, overrides)
			server.SetConfig(next)
			log.Printf("Reloaded %s", next.File())
		})
		if err != nil {
			log.Printf("Warning: config changes will not be picked up: %v", err)
		}
	}()

	log.Printf("Escriba %s listening on %s", versionInfo, cfg.Listen)
	if err := server.Run(ctx, cfg.Listen); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shut down")
	return nil
}
