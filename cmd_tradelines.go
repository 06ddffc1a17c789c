package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/tradeline-extractor/internal/storage"
	"github.com/insightdelivered/tradeline-extractor/internal/writer"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's stored tradelines",
		RunE:  runTradelinesList,
	}
	cmd.Flags().String("user", "", "user id (required)")
	cmd.Flags().String("format", "table", "output format (table, json, csv)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func rejectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rejections",
		Short: "List blocks that could not be turned into tradelines",
		RunE:  runRejections,
	}
	cmd.Flags().String("user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runTradelinesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tls, err := store.GetTradelines(ctx, userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(out, tls)
	case "csv":
		w := &writer.CSVWriter{IncludeHeader: true}
		return w.WriteTradelines(out, tls)
	case "table":
	default:
		return fmt.Errorf("unsupported format %q (want table, json or csv)", format)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREDITOR\tACCOUNT\tBUREAU\tTYPE\tSTATUS\tBALANCE\tNEGATIVE")
	for _, t := range tls {
		neg := "-"
		if t.IsNegative {
			neg = string(t.NegativeType)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.CreditorName, t.AccountNumber, t.CreditBureau, t.AccountType,
			t.AccountStatus, t.AccountBalance, neg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d tradelines\n", len(tls))
	return nil
}

func runRejections(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	recs, err := store.GetRejections(ctx, userID)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []storage.RejectionRecord{}
	}
	return writeJSON(cmd.OutOrStdout(), recs)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !status {
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			v, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (latest %d)\n", store.Path(), v, storage.ExpectedSchemaVersion)
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "show the schema version without migrating")
	return cmd
}
