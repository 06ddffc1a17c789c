package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/tradeline-extractor/internal/api"
	"github.com/insightdelivered/tradeline-extractor/internal/extractor"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("reports", "", "directory of stored reports")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, err := newPipeline()
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var source pipeline.TextSource
	if cfg.Server.ReportsDir != "" {
		source = extractor.DirSource{Dir: cfg.Server.ReportsDir, PDF: pdfOptions()}
	}

	app := api.NewApp(&api.Handler{
		Service:    pipeline.NewService(p, source, store, logger),
		Tradelines: store,
		PDF:        pdfOptions(),
		Version:    version,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "database", store.Path())
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	// Listen returns once the listener is closed.
	<-errCh
	return nil
}
