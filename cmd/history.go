package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rangedl/internal/history"
	"github.com/tanq16/rangedl/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [--limit N]",
		Short: "List recorded downloads, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			dbPath := historyPath
			if dbPath == "" {
				var err error
				if dbPath, err = history.DefaultPath(); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
			}
			store, err := history.Open(dbPath)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			defer store.Close()
			records, err := store.List(limit)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if len(records) == 0 {
				output.PrintInfo("No downloads recorded")
				return
			}
			for _, rec := range records {
				fmt.Println(formatRecord(rec))
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show (0 for all)")
	return cmd
}

func formatRecord(rec history.Record) string {
	status := output.FSuccess(output.StyleSymbols["pass"])
	if rec.Status == history.StatusError {
		status = output.FError(output.StyleSymbols["fail"])
	}
	details := []string{
		rec.FinishedAt.Format(time.DateTime),
		output.FormatBytes(rec.Size),
		rec.Elapsed.Round(time.Millisecond).String(),
	}
	if rec.Mode != "" {
		details = append(details, rec.Mode)
	}
	line := fmt.Sprintf("  %s %s %s %s", status, output.FDebug(strings.Join(details, " "+output.StyleSymbols["dot"]+" ")), rec.URL, output.FStream(output.StyleSymbols["arrow"]+" "+rec.Output))
	if rec.Error != "" {
		line += "\n      " + output.FError(rec.Error)
	}
	return line
}
