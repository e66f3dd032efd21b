package cli

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/events"
	"github.com/lherron/wbmerge/internal/merge"
	"github.com/lherron/wbmerge/internal/report"
	"github.com/lherron/wbmerge/internal/selectors"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a source workbook into a target workbook",
	Long: `Merge carries the edits of a source workbook into a copy of the target.

Sheets, topics, summaries, boundaries, relationships and styles that exist
only in the source are imported. Elements edited on both sides keep the
target's version and are listed in the conflict report. Source-only
summaries and boundaries whose topic range no longer exists in the result
are reported as uncopiable.

A sheet whose root topic differs between the two workbooks cannot be merged.
By default this aborts the merge; with --on-mismatch skip the sheet keeps
its target content and is listed in the report instead.

--source and --target take a file path, or store:NAME to read a workbook
kept in the store. Use --save to also store the result.`,
	Example: `  wbmerge merge --source mine.json --target theirs.json --out merged.json
  wbmerge merge --source mine.json --target store:plan --save plan
  wbmerge merge --source mine.json --target theirs.json --report conflicts.json --format yaml`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runMerge),
}

var (
	mergeSource     string
	mergeTarget     string
	mergeOut        string
	mergeReportPath string
	mergeSave       string
)

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(&mergeSource, "source", "", "Source workbook (file path or store:NAME)")
	mergeCmd.Flags().StringVar(&mergeTarget, "target", "", "Target workbook (file path or store:NAME)")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Write the merged workbook to this file")
	mergeCmd.Flags().StringVar(&mergeReportPath, "report", "", "Write JSON conflict report to path")
	mergeCmd.Flags().StringVar(&mergeSave, "save", "", "Store the merged workbook under this name")
	mergeCmd.Flags().String("on-mismatch", "", "What to do with sheets whose root topic was replaced: abort or skip")
}

func runMerge(app *appctx.App, cmd *cobra.Command, args []string) error {
	if mergeSource == "" || mergeTarget == "" {
		return exitError(2, fmt.Errorf("both --source and --target are required"))
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	sourceSel, err := selectors.Parse(mergeSource)
	if err != nil {
		return exitError(2, err)
	}
	targetSel, err := selectors.Parse(mergeTarget)
	if err != nil {
		return exitError(2, err)
	}
	var stored selectors.Stored
	if selectors.AnyStored(sourceSel, targetSel) {
		s, err := app.OpenStore()
		if err != nil {
			return exitError(1, err)
		}
		stored = s
	}

	source, err := sourceSel.Load(stored)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to load source: %w", err))
	}
	target, err := targetSel.Load(stored)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to load target: %w", err))
	}

	log := app.Logger.WithField("run", "merge")
	m, err := merge.New(source, target,
		merge.WithLogger(log),
		merge.WithSkipMismatched(app.Config.SkipMismatched()),
	)
	if err != nil {
		return exitError(1, err)
	}

	sheets, err := m.MergeSheets()
	if err != nil {
		log.WithError(err).Error("merge failed")
		return exitError(1, fmt.Errorf("merge failed: %w", err))
	}
	styles, err := m.MergeStyles()
	if err != nil {
		return exitError(1, fmt.Errorf("style merge failed: %w", err))
	}

	rep, err := report.Build(m, sheets, styles)
	if err != nil {
		return exitError(1, err)
	}
	log.WithFields(logrus.Fields{
		"sheets":    rep.Counts.Sheets,
		"conflicts": rep.Counts.Total(),
		"skipped":   len(rep.SkippedSheets),
		"rev":       rep.ResultRev,
	}).Info("merge complete")

	if mergeOut != "" {
		if err := m.Result().Save(mergeOut); err != nil {
			return exitError(1, fmt.Errorf("failed to write merged workbook: %w", err))
		}
	}
	if mergeSave != "" {
		s, err := app.OpenStore()
		if err != nil {
			return exitError(1, err)
		}
		saved, err := s.SaveMerged(mergeSave, m.Result(), events.MergeDetails{
			RunID:     rep.RunID,
			Source:    sourceSel.String(),
			Target:    targetSel.String(),
			Conflicts: rep.Counts.Total(),
			Skipped:   len(rep.SkippedSheets),
		})
		if err != nil {
			return exitError(1, err)
		}
		log.WithFields(logrus.Fields{
			"name":          saved.Name,
			"new_revisions": saved.NewRevisions,
		}).Info("merged workbook stored")
	}
	if mergeReportPath != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return exitError(1, fmt.Errorf("failed to encode report: %w", err))
		}
		if err := writeOutput(cmd, mergeReportPath, append(data, '\n')); err != nil {
			return exitError(1, err)
		}
	}

	return renderer.Render(rep)
}
