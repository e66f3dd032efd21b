package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wbmerge",
	Short: "Three-way structural merge of mind-map workbooks",
	Long: `wbmerge merges two copies of a workbook that were edited independently.
Edits made on one side only are carried into the result; elements changed
on both sides are kept as in the target and reported as conflicts.

Workbooks can also be kept in a local SQLite store, which records every
sheet revision it sees so histories can be compared later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides WBMERGE_DB_PATH)")
	rootCmd.PersistentFlags().String("format", "", "Output format: text, table, json, yaml, tsv (overrides WBMERGE_OUTPUT)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides WBMERGE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides WBMERGE_LOG_FORMAT)")
}
