package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/render"
)

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	// main exits 1 for every error; the code only documents intent for now
	return err
}

// newRenderer builds a renderer for the configured output format.
func newRenderer(app *appctx.App, cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(app.Config.Output)
	if err != nil {
		return nil, exitError(2, err)
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format}), nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
