package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/tradeline-extractor/internal/extractor"
	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
	"github.com/insightdelivered/tradeline-extractor/internal/writer"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <report> [report ...]",
		Short: "Extract tradelines from credit report files",
		Long: `Extract tradelines from one or more credit reports and print them as
JSON or CSV. Without --apply nothing is written to the database, but
stored tradelines for --user are still used to detect duplicates when
the database exists.

Examples:
  # Print tradelines as JSON
  tradelines extract report.pdf

  # Export CSV next to each input
  tradelines extract --format=csv jan.pdf feb.html

  # Merge into the database for a user
  tradelines extract --user=u-123 --apply report.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().String("user", "local", "user the tradelines belong to")
	cmd.Flags().String("format", "json", "output format (json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file for a single input (csv defaults to <input>.csv)")
	cmd.Flags().Bool("apply", false, "insert and patch tradelines in the database")
	cmd.Flags().Bool("header", true, "include extraction metadata rows in CSV")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	apply, _ := cmd.Flags().GetBool("apply")
	header, _ := cmd.Flags().GetBool("header")

	format = strings.ToLower(format)
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q (want json or csv)", format)
	}
	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output can only be used with a single input file")
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	var (
		svc      *pipeline.Service
		existing pipeline.TradelineReader
	)
	if apply || fileExists(cfg.Database.Path) {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		svc = pipeline.NewService(p, nil, store, logger)
		existing = store
	}

	var summaries []pipeline.ApplySummary
	for _, path := range args {
		text, err := extractor.ReadReport(ctx, path, pdfOptions())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		var sum pipeline.ApplySummary
		reportID := filepath.Base(path)
		if apply {
			sum, err = svc.ProcessText(ctx, reportID, text, userID)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		} else {
			var stored []models.StoredTradeline
			if existing != nil {
				if stored, err = existing.GetTradelines(ctx, userID); err != nil {
					return err
				}
			}
			res, err := p.Extract(ctx, text, userID, stored)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sum = pipeline.ApplySummary{ReportID: reportID, UserID: userID, Result: res}
		}

		logger.Info("report extracted",
			"file", path,
			"bureau", sum.Result.Bureau,
			"accepted", len(sum.Result.Accepted),
			"rejected", len(sum.Result.Rejected),
			"warnings", len(sum.Result.Warnings),
		)

		if format == "csv" {
			dest := output
			if dest == "" {
				dest = strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
			}
			w := &writer.CSVWriter{IncludeHeader: header}
			if err := w.WriteToFile(dest, sum.Result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tradelines -> %s\n", path, len(sum.Result.Accepted), dest)
			continue
		}
		summaries = append(summaries, sum)
	}

	if format == "json" {
		out := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file %q: %w", output, err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		return writeJSON(out, summaries)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fileExists(path string) bool {
	if path == ":memory:" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
