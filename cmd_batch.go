package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/tradeline-extractor/internal/extractor"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
)

var reportExts = map[string]bool{".pdf": true, ".html": true, ".htm": true, ".txt": true}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process a directory of reports concurrently",
		Long: `Process every report under a directory and merge the tradelines into
the database. With --user every report belongs to that user; otherwise
reports are laid out as <dir>/<user id>/<report>.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().String("user", "", "user every report belongs to")
	cmd.Flags().Int("workers", 4, "reports processed concurrently")
	cmd.Flags().Bool("progress", true, "show a progress bar")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	userID, _ := cmd.Flags().GetString("user")
	showProgress, _ := cmd.Flags().GetBool("progress")
	workers := cfg.Pipeline.Workers

	jobs, err := collectJobs(dir, userID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no reports found in %s", dir)
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := pipeline.NewService(p, extractor.DirSource{Dir: dir, PDF: pdfOptions()}, store, logger)

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Extracting tradelines"),
		)
	}

	logger.Info("starting batch", "dir", dir, "reports", len(jobs), "workers", workers)
	results := svc.Batch(ctx, jobs, workers, func(pipeline.JobResult) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %-40s %v\n", r.ReportID, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK    %-40s user=%s inserted=%d patched=%d unchanged=%d rejected=%d\n",
			r.ReportID, r.UserID, len(r.Summary.Inserted), len(r.Summary.Patched),
			r.Summary.Unchanged, len(r.Summary.Result.Rejected))
	}
	fmt.Fprintf(out, "\n%d reports, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}

// collectJobs walks dir for report files. Report ids are paths relative
// to dir so DirSource can resolve them.
func collectJobs(dir, userID string) ([]pipeline.Job, error) {
	var jobs []pipeline.Job
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !reportExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		owner := userID
		if owner == "" {
			parts := strings.Split(filepath.ToSlash(rel), "/")
			if len(parts) < 2 {
				logger.Warn("skipping report outside a user directory", "path", path)
				return nil
			}
			owner = parts[0]
		}
		jobs = append(jobs, pipeline.Job{ReportID: rel, UserID: owner})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return jobs, nil
}
