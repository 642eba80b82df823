package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/state"
)

var settingsOutput string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show, export or import settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print settings with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export settings, projects and context selections as JSON",
	Args:  cobra.NoArgs,
	RunE:  runSettingsExport,
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace settings, projects and context selections from a JSON export",
	Long: `Replace the current state with an export. Use - to read stdin.

Examples:
  escriba settings export -o backup.json
  escriba settings import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsImport,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsExportCmd, settingsImportCmd)
	settingsExportCmd.Flags().StringVarP(&settingsOutput, "output", "o", "", "Output file (default: stdout)")
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	st, err := ws.state.Load(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st.Settings.Redacted())
}

func runSettingsExport(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	st, err := ws.state.Load(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if settingsOutput != "" {
		f, err := os.OpenFile(settingsOutput, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := state.Export(w, st); err != nil {
		return err
	}
	if settingsOutput != "" {
		fmt.Fprintf(os.Stderr, "Exported %d project(s) to %s\n", len(st.Projects), settingsOutput)
	}
	return nil
}

func runSettingsImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	imported, err := state.Import(r)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(false)
	if err != nil {
		return err
	}
	defer ws.Close()

	if _, err := ws.state.Update(cmd.Context(), func(st *state.State) error {
		*st = *imported
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Imported %d project(s)\n", len(imported.Projects))
	return nil
}
