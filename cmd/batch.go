package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tanq16/rangedl/internal/config"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/utils"
)

func newBatchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Download every entry of a YAML list of {link, op} entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := utils.ReadDownloadList(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to read download list: %v", err))
				os.Exit(1)
			}
			if len(entries) == 0 {
				output.PrintError("No entries found in the download list")
				os.Exit(1)
			}
			cfg, err := buildConfig(cmd)
			if err != nil {
				output.PrintError(fmt.Sprintf("Invalid configuration: %v", err))
				os.Exit(1)
			}
			os.Exit(runJobs(buildJobs(entries, cfg), workers))
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of links to download in parallel")
	return cmd
}

func buildJobs(entries []utils.DownloadEntry, cfg config.Config) []utils.Job {
	jobs := make([]utils.Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, utils.Job{
			ID:         uuid.New().String(),
			URL:        entry.URL,
			OutputPath: entry.OutputPath,
			Config:     cfg.Clone(),
		})
	}
	return jobs
}
