package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the repositories you write in",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Add a repository as a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsAdd,
}

var projectsRemoveCmd = &cobra.Command{
	Use:     "remove <owner/repo>",
	Aliases: []string{"rm"},
	Short:   "Remove a project and its context selection",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectsRemove,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsAddCmd, projectsRemoveCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	st, err := ws.state.Load(cmd.Context())
	if err != nil {
		return err
	}
	if len(st.Projects) == 0 {
		fmt.Println("No projects yet. Add one with 'escriba projects add owner/repo'.")
		return nil
	}

	for _, p := range st.Projects {
		fmt.Printf("%s\n", p.Key())
		fmt.Printf("    Branch:  %s\n", p.DefaultBranch)
		if n := len(st.Context[p.Key()]); n > 0 {
			fmt.Printf("    Context: %d file(s)\n", n)
		}
		if !p.AddedAt.IsZero() {
			fmt.Printf("    Added:   %s\n", humanize.Time(p.AddedAt))
		}
	}
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	repo, err := ws.github.GetRepository(cmd.Context(), p.Owner, p.Repo)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", p.Key(), err)
	}
	p.DefaultBranch = repo.DefaultBranch
	p.AddedAt = time.Now()

	if _, err := ws.state.Update(cmd.Context(), func(st *state.State) error {
		st.AddProject(p)
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Added %s (default branch %s)\n", p.Key(), p.DefaultBranch)
	return nil
}

func runProjectsRemove(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	removed := false
	if _, err := ws.state.Update(cmd.Context(), func(st *state.State) error {
		removed = st.RemoveProject(p.Key())
		return nil
	}); err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no such project: %s", p.Key())
	}
	fmt.Printf("Removed %s\n", p.Key())
	return nil
}
