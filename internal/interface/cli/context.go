package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Choose the files sent along with completions",
}

var contextListCmd = &cobra.Command{
	Use:   "list <owner/repo>",
	Short: "Show the selected context files",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextList,
}

var contextToggleCmd = &cobra.Command{
	Use:   "toggle <owner/repo> <path>...",
	Short: "Select or deselect context files",
	Long: `Flip each path in the project's context selection.

Examples:
  escriba context toggle octo/novel references/people.md references/places.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: runContextToggle,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextListCmd, contextToggleCmd)
}

func runContextList(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	st, err := ws.state.Load(cmd.Context())
	if err != nil {
		return err
	}
	paths := st.Context[p.Key()]
	if len(paths) == 0 {
		fmt.Printf("No context files selected for %s\n", p.Key())
		return nil
	}
	for _, path := range paths {
		fmt.Println(path)
	}
	return nil
}

func runContextToggle(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	var report []string
	if _, err := ws.state.Update(cmd.Context(), func(st *state.State) error {
		if _, ok := st.Project(p.Key()); !ok {
			return fmt.Errorf("%s is not a project; add it with 'escriba projects add %s'", p.Key(), p.Key())
		}
		for _, path := range args[1:] {
			path = strings.TrimPrefix(path, "/")
			if st.ToggleContext(p.Key(), path) {
				report = append(report, "+ "+path)
			} else {
				report = append(report, "- "+path)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, line := range report {
		fmt.Println(line)
	}
	return nil
}
