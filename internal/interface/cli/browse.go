package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/interface/tui"
)

var browseRef string

var browseCmd = &cobra.Command{
	Use:   "browse [owner/repo]",
	Short: "Browse a project's library and pick context files",
	Long: `Open an interactive browser over the books/ and references/ folders of a
project. Preview files with enter, toggle context with space.

Without an argument the first added project is opened.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseRef, "ref", "", "Branch to browse (default: repository default branch)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	var p models.Project
	if len(args) == 1 {
		p, err = models.ParseProject(args[0])
		if err != nil {
			return err
		}
	} else {
		st, err := ws.state.Load(ctx)
		if err != nil {
			return err
		}
		if len(st.Projects) == 0 {
			return fmt.Errorf("no projects yet: run 'escriba projects add owner/repo' first")
		}
		p = st.Projects[0]
	}

	ref, err := ws.resolveRef(ctx, p, browseRef)
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		tui.New(ws.github, ws.state, p, ref),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}

	if m, ok := finalModel.(tui.Model); ok {
		paths := m.ContextPaths()
		if len(paths) == 0 {
			fmt.Printf("%s: no context files selected\n", p.Key())
		} else {
			fmt.Printf("%s context: %s\n", p.Key(), strings.Join(paths, ", "))
		}
	}
	return nil
}
