package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

var (
	repoDescription string
	repoPrivate     bool
	repoAddProject  bool
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List or create GitHub repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories the token can access",
	Args:  cobra.NoArgs,
	RunE:  runReposList,
}

var reposCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a repository for a new book",
	Long: `Create a repository owned by the authenticated user.

Examples:
  escriba repos create memoir --private --add`,
	Args: cobra.ExactArgs(1),
	RunE: runReposCreate,
}

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.AddCommand(reposListCmd, reposCreateCmd)
	reposCreateCmd.Flags().StringVar(&repoDescription, "description", "", "Repository description")
	reposCreateCmd.Flags().BoolVar(&repoPrivate, "private", false, "Create a private repository")
	reposCreateCmd.Flags().BoolVar(&repoAddProject, "add", false, "Also add it as a project")
}

func runReposList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	repos, err := ws.github.ListRepos(cmd.Context())
	if err != nil {
		return err
	}
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		updated := ""
		if !r.UpdatedAt.IsZero() {
			updated = humanize.Time(r.UpdatedAt)
		}
		fmt.Printf("%-40s %-8s %s\n", r.FullName, visibility, updated)
	}
	return nil
}

func runReposCreate(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	repo, err := ws.github.CreateRepo(cmd.Context(), github.NewRepo{
		Name:        args[0],
		Description: repoDescription,
		Private:     repoPrivate,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", repo.HTMLURL)

	if repoAddProject {
		p := models.Project{Owner: repo.Owner, Repo: repo.Name, DefaultBranch: repo.DefaultBranch, AddedAt: time.Now()}
		if _, err := ws.state.Update(cmd.Context(), func(st *state.State) error {
			st.AddProject(p)
			return nil
		}); err != nil {
			return err
		}
		fmt.Printf("Added %s as a project\n", p.Key())
	}
	return nil
}
