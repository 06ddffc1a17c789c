package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/tradeline-extractor/internal/config"
	"github.com/insightdelivered/tradeline-extractor/internal/dedupe"
	"github.com/insightdelivered/tradeline-extractor/internal/extractor"
	"github.com/insightdelivered/tradeline-extractor/internal/logging"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
	"github.com/insightdelivered/tradeline-extractor/internal/storage"
)

const version = "1.0.0"

var (
	cfgFile string
	cfg     config.Config
	logger  = slog.New(slog.DiscardHandler)

	rootCmd = &cobra.Command{
		Use:   "tradelines",
		Short: "Credit report tradeline extractor",
		Long: `Tradeline Extractor
by Insight Delivered

Reads credit reports (PDF, HTML or text) from Experian, Equifax and
TransUnion, extracts every account as a tradeline, flags negative items,
and merges repeat sightings of the same account into one stored record.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/tradelines/config.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("db", "tradelines.db", "SQLite database path")
	pf.Duration("timeout", 0, "per-report extraction timeout (0 uses config)")
	pf.Int("min-block", 0, "minimum account block length in characters")
	pf.String("tie-policy", "first", "which stored record wins when several match (first, best)")
	pf.String("rules", "", "YAML file overriding the built-in rule tables")
	pf.Bool("ocr", false, "fall back to tesseract OCR for scanned PDFs")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(rejectionsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c
	logger = logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tradelines v%s\n", version)
		},
	}
}

// newPipeline compiles the configured rule tables.
func newPipeline() (*pipeline.Pipeline, error) {
	r := rules.Default()
	if cfg.Pipeline.RulesFile != "" {
		t, err := rules.LoadFile(cfg.Pipeline.RulesFile)
		if err != nil {
			return nil, err
		}
		if r, err = rules.Compile(t); err != nil {
			return nil, err
		}
		logger.Info("loaded rule overrides", "path", cfg.Pipeline.RulesFile)
	}
	tie, err := dedupe.ParseTiePolicy(cfg.Pipeline.TiePolicy)
	if err != nil {
		return nil, err
	}
	return pipeline.New(r, pipeline.Options{
		Logger:         logger,
		TiePolicy:      tie,
		MinBlockLength: cfg.Pipeline.MinBlockLength,
		Timeout:        cfg.Pipeline.Timeout,
	})
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func pdfOptions() extractor.PDFOptions {
	return extractor.PDFOptions{OCR: cfg.Pipeline.OCR, Logger: logger}
}
