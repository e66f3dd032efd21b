package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/merge"
	"github.com/lherron/wbmerge/internal/store"
)

var revsCmd = &cobra.Command{
	Use:   "revs SRC DST",
	Short: "Compare the revision histories of a sheet in two stored workbooks",
	Long: `Revs pairs the stored revisions of one sheet from two workbooks by their
modified time. Two revisions with the same modified time hold the same edit.
For every pair the relationships that differ between the two copies are
listed; revisions present on one side only are shown unpaired.`,
	Example: `  wbmerge revs mine theirs --sheet 7c9e6679-7425-40de-944b-e07fc1f90ae7`,
	Args:    cobra.ExactArgs(2),
	RunE:    appctx.WithApp(appctx.WithStore(), runRevs),
}

var revsSheet string

func init() {
	rootCmd.AddCommand(revsCmd)
	revsCmd.Flags().StringVar(&revsSheet, "sheet", "", "Sheet id to compare (required)")
}

func runRevs(app *appctx.App, cmd *cobra.Command, args []string) error {
	if revsSheet == "" {
		return exitError(2, fmt.Errorf("--sheet is required"))
	}
	source, err := loadRevisions(app.Store, args[0], revsSheet)
	if err != nil {
		return exitError(1, err)
	}
	target, err := loadRevisions(app.Store, args[1], revsSheet)
	if err != nil {
		return exitError(1, err)
	}

	out := revisionPairs{}
	for _, c := range merge.CompareRevisions(source, target) {
		p := revisionPair{
			ModifiedTime: c.ModifiedTime,
			InSource:     c.Pair.HasSource(),
			InTarget:     c.Pair.HasTarget(),
		}
		for _, rel := range c.Relationships {
			if rel.HasSource() {
				p.Relationships = append(p.Relationships, rel.Source().ID)
			} else {
				p.Relationships = append(p.Relationships, rel.Target().ID)
			}
		}
		out = append(out, p)
	}
	app.Logger.WithField("pairs", len(out)).Debug("compared revisions")

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	return renderer.Render(out)
}

func loadRevisions(s *store.Store, name, sheetID string) ([]*merge.Revision, error) {
	stored, err := s.SheetRevisions(name, sheetID)
	if err != nil {
		return nil, err
	}
	revs := make([]*merge.Revision, 0, len(stored))
	for _, r := range stored {
		rev, err := merge.NewRevision(r.Content, r.SheetID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

type revisionPair struct {
	ModifiedTime  int64    `json:"modified_time" yaml:"modified_time"`
	InSource      bool     `json:"in_source" yaml:"in_source"`
	InTarget      bool     `json:"in_target" yaml:"in_target"`
	Relationships []string `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

type revisionPairs []revisionPair

func (l revisionPairs) Rows() ([]string, [][]string) {
	headers := []string{"modified_time", "source", "target", "relationships"}
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{
			strconv.FormatInt(p.ModifiedTime, 10),
			strconv.FormatBool(p.InSource),
			strconv.FormatBool(p.InTarget),
			strings.Join(p.Relationships, ","),
		})
	}
	return headers, rows
}

func (l revisionPairs) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No revisions found.")
		return err
	}
	for _, p := range l {
		var status string
		switch {
		case p.InSource && p.InTarget && len(p.Relationships) == 0:
			status = "same"
		case p.InSource && p.InTarget:
			status = fmt.Sprintf("relationships differ: %s", strings.Join(p.Relationships, ", "))
		case p.InSource:
			status = "source only"
		default:
			status = "target only"
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", p.ModifiedTime, status); err != nil {
			return err
		}
	}
	return nil
}
