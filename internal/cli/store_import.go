package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/bulk"
	"github.com/lherron/wbmerge/internal/bundle"
	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/names"
	"github.com/lherron/wbmerge/internal/workbook"
)

var storeImportCmd = &cobra.Command{
	Use:   "import [FILE...]",
	Short: "Store many workbook files, each under its base name",
	Long: `Import stores each workbook file under its file name without extension,
normalized to a valid store name, so "plans/Q3 Plan.json" is stored as
"q3-plan". Files are read and validated in
parallel; use --jobs to bound the number of workers.

With --bundle, the workbooks of a directory written by "wbmerge store export"
are stored under the names in its manifest instead.`,
	Args: cobra.ArbitraryArgs,
	RunE: appctx.WithApp(appctx.WithStore(), runStoreImport),
}

var storeExportCmd = &cobra.Command{
	Use:   "export DIR [PATTERN]",
	Short: "Write stored workbooks and a manifest to a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  appctx.WithApp(appctx.WithStore(), runStoreExport),
}

var (
	importJobs            int
	importContinueOnError bool
	importBundle          string
)

func init() {
	storeCmd.AddCommand(storeImportCmd, storeExportCmd)

	storeImportCmd.Flags().IntVarP(&importJobs, "jobs", "j", 0, "Number of parallel workers (0 = number of CPUs)")
	storeImportCmd.Flags().BoolVar(&importContinueOnError, "continue-on-error", false, "Keep going after a file fails")
	storeImportCmd.Flags().StringVar(&importBundle, "bundle", "", "Import the workbooks of an exported bundle directory")
}

func runStoreImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	items := args
	load := func(path string) (string, *workbook.Workbook, error) {
		name, err := storeName(path)
		if err != nil {
			return "", nil, err
		}
		wb, err := workbook.Load(path)
		return name, wb, err
	}

	switch {
	case importBundle != "" && len(args) > 0:
		return exitError(2, fmt.Errorf("--bundle cannot be combined with file arguments"))
	case importBundle != "":
		b, err := bundle.Load(importBundle)
		if err != nil {
			return exitError(1, err)
		}
		items = make([]string, 0, len(b.Manifest.Workbooks))
		for _, e := range b.Manifest.Workbooks {
			items = append(items, e.Name)
		}
		load = func(name string) (string, *workbook.Workbook, error) {
			entry, _ := b.Entry(name)
			wb, err := b.Workbook(entry)
			return name, wb, err
		}
	case len(args) == 0:
		return exitError(2, fmt.Errorf("no workbook files given"))
	}

	// SQLite serialises writers anyway; only loading runs in parallel.
	var saveMu sync.Mutex

	op := &bulk.Operation{
		Jobs:            importJobs,
		ContinueOnError: importContinueOnError,
		Log:             app.Logger,
	}
	result := op.Execute(items, func(item string) error {
		name, wb, err := load(item)
		if err != nil {
			return err
		}
		saveMu.Lock()
		defer saveMu.Unlock()
		_, err = app.Store.SaveWorkbook(name, wb)
		return err
	})

	result.PrintSummary(cmd.OutOrStdout())
	if err := result.Err(); err != nil {
		return exitError(1, err)
	}
	return nil
}

func runStoreExport(app *appctx.App, cmd *cobra.Command, args []string) error {
	pattern := ""
	if len(args) == 2 {
		pattern = args[1]
	}
	b, err := bundle.Create(args[0], app.Store, bundle.CreateOptions{
		Pattern: pattern,
		Version: Version,
	})
	if err != nil {
		return exitError(1, err)
	}
	app.Logger.WithField("dir", b.Dir).Debugf("exported %d workbook(s)", len(b.Manifest.Workbooks))

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	return renderer.Render(exportOutput{Dir: b.Dir, Manifest: b.Manifest})
}

// storeName derives a store name from a file path.
func storeName(path string) (string, error) {
	base := filepath.Base(path)
	return names.Normalize(strings.TrimSuffix(base, filepath.Ext(base)))
}

// exportOutput renders the outcome of "store export".
type exportOutput struct {
	Dir      string           `json:"dir" yaml:"dir"`
	Manifest *bundle.Manifest `json:"manifest" yaml:"manifest"`
}

func (e exportOutput) Rows() ([]string, [][]string) {
	rows := make([][]string, 0, len(e.Manifest.Workbooks))
	for _, w := range e.Manifest.Workbooks {
		rows = append(rows, []string{w.Name, w.File, w.Rev})
	}
	return []string{"name", "file", "rev"}, rows
}

func (e exportOutput) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Exported %d workbook(s) to %s\n", len(e.Manifest.Workbooks), e.Dir)
	return err
}
