package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

var lsRef string

var lsCmd = &cobra.Command{
	Use:   "ls <owner/repo>",
	Short: "List the markdown files under books/ and references/",
	Long: `List the library of a project. Files selected as completion context
are marked with *.

Examples:
  escriba ls octo/novel
  escriba ls octo/novel --ref draft-2`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringVar(&lsRef, "ref", "", "Branch to list (default: project default branch)")
}

func runLs(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	ref, err := ws.resolveRef(ctx, p, lsRef)
	if err != nil {
		return err
	}
	listing, err := library.List(ctx, ws.github, p.Owner, p.Repo, ref)
	if err != nil {
		return err
	}
	st, err := ws.state.Load(ctx)
	if err != nil {
		return err
	}

	printSection("Books", listing.Books, st, p)
	printSection("References", listing.References, st, p)
	return nil
}

func printSection(title string, files []library.File, st *state.State, p models.Project) {
	selected := models.NewContextSelection(st.Context[p.Key()]...)
	fmt.Printf("%s (%d)\n", title, len(files))
	for _, f := range files {
		mark := " "
		if selected.Contains(f.Path) {
			mark = "*"
		}
		fmt.Printf("  %s %-50s %8s\n", mark, f.Path, humanize.Bytes(uint64(f.Size)))
	}
	fmt.Println()
}
