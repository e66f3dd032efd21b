package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/events"
	"github.com/lherron/wbmerge/internal/store"
	"github.com/lherron/wbmerge/internal/workbook"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep workbooks and their sheet revisions in the local database",
	Long: `The store keeps the latest content of each named workbook. Every time a
workbook is put, one revision is recorded for each sheet edit the store has
not seen before, so "wbmerge revs" can compare sheet histories later.`,
}

var storePutCmd = &cobra.Command{
	Use:   "put NAME FILE",
	Short: "Store a workbook file under a name",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithStore(), runStorePut),
}

var storeGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Write a stored workbook as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.WithStore(), runStoreGet),
}

var storeLsCmd = &cobra.Command{
	Use:   "ls [PATTERN]",
	Short: "List stored workbooks",
	Long:  `Lists stored workbooks, optionally only those whose name matches a glob pattern.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  appctx.WithApp(appctx.WithStore(), runStoreLs),
}

var storeLogCmd = &cobra.Command{
	Use:   "log NAME",
	Short: "Show the history of a stored workbook",
	Long: `Shows the saves and merges recorded for a stored workbook, newest first.
Saves that did not change the content are not recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithStore(), runStoreLog),
}

var (
	storeLogLimit int
	storeGetOut   string
	storeLsLimit  int
	storeLsCursor string
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd, storeGetCmd, storeLsCmd, storeLogCmd)

	storeGetCmd.Flags().StringVarP(&storeGetOut, "out", "o", "", "Write to file instead of stdout")
	storeLsCmd.Flags().IntVar(&storeLsLimit, "limit", 0, "Maximum number of workbooks to list (0 = all)")
	storeLsCmd.Flags().StringVar(&storeLsCursor, "cursor", "", "Continue a previous listing from its next cursor")
	storeLogCmd.Flags().IntVarP(&storeLogLimit, "limit", "n", 0, "Show only the newest N events (0 = all)")
}

func runStorePut(app *appctx.App, cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]
	wb, err := workbook.Load(path)
	if err != nil {
		return exitError(1, err)
	}
	result, err := app.Store.SaveWorkbook(name, wb)
	if err != nil {
		return exitError(1, err)
	}
	app.Logger.WithFields(logrus.Fields{
		"name":          result.Name,
		"rev":           result.Rev,
		"new_revisions": result.NewRevisions,
	}).Debug("workbook stored")

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	return renderer.Render(saveOutput(*result))
}

func runStoreGet(app *appctx.App, cmd *cobra.Command, args []string) error {
	wb, err := app.Store.LoadWorkbook(args[0])
	if err != nil {
		return exitError(1, err)
	}
	data, err := workbook.PrettyJSON(wb)
	if err != nil {
		return exitError(1, err)
	}
	return writeOutput(cmd, storeGetOut, append(data, '\n'))
}

func runStoreLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	pattern := ""
	if len(args) == 1 {
		pattern = args[0]
	}
	entries, next, err := app.Store.ListPage(pattern, storeLsLimit, storeLsCursor)
	if err != nil {
		return exitError(1, err)
	}
	if next != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "next cursor: %s\n", next)
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return renderer.Render(entryList(entries))
}

func runStoreLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	history, err := app.Store.History(args[0], storeLogLimit)
	if err != nil {
		return exitError(1, err)
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	if history == nil {
		history = []events.Event{}
	}
	return renderer.Render(eventList(history))
}

// saveOutput renders the outcome of "store put".
type saveOutput store.SaveResult

func (s saveOutput) Rows() ([]string, [][]string) {
	return []string{"name", "rev", "unchanged", "new_revisions"},
		[][]string{{s.Name, s.Rev, strconv.FormatBool(s.Unchanged), strconv.Itoa(s.NewRevisions)}}
}

func (s saveOutput) WriteText(w io.Writer) error {
	if s.Unchanged {
		_, err := fmt.Fprintf(w, "%s unchanged (%s)\n", s.Name, s.Rev)
		return err
	}
	_, err := fmt.Fprintf(w, "Stored %s (%s), %d new sheet revision(s)\n", s.Name, s.Rev, s.NewRevisions)
	return err
}

// entryList renders the outcome of "store ls".
type entryList []store.Entry

func (l entryList) Rows() ([]string, [][]string) {
	headers := []string{"name", "sheets", "revisions", "rev", "updated_at"}
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.Name, strconv.Itoa(e.Sheets), strconv.Itoa(e.Revisions), e.Rev, e.UpdatedAt})
	}
	return headers, rows
}

func (l entryList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No workbooks stored.")
		return err
	}
	for _, e := range l {
		if _, err := fmt.Fprintf(w, "%s\t%d sheet(s)\t%d revision(s)\t%s\n", e.Name, e.Sheets, e.Revisions, e.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// eventList renders the outcome of "store log".
type eventList []events.Event

func (l eventList) Rows() ([]string, [][]string) {
	headers := []string{"id", "type", "rev", "created_at", "details"}
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.EventType, e.Rev, e.CreatedAt, formatPayload(e.Payload)})
	}
	return headers, rows
}

func (l eventList) WriteText(w io.Writer) error {
	for _, e := range l {
		line := fmt.Sprintf("%s  %-16s %s", e.CreatedAt, e.EventType, e.Rev)
		if details := formatPayload(e.Payload); details != "" {
			line += "  " + details
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatPayload renders a payload as sorted key=value pairs.
func formatPayload(payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}
