package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shelfsync/internal/auditstore"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect resolution history",
	}

	auditCmd.AddCommand(newAuditRecentCommand(ctx))
	auditCmd.AddCommand(newAuditItemCommand(ctx))
	auditCmd.AddCommand(newAuditRunCommand(ctx))

	return auditCmd
}

func newAuditRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAudit(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read audit records: %w", err)
			}
			return renderAuditRecords(cmd, records, jsonOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func newAuditItemCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "item <item-id>",
		Short: "Show one item's resolution history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAudit(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListByItem(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("read audit records: %w", err)
			}
			return renderAuditRecords(cmd, records, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func newAuditRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show one pass's audit records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAudit(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListByRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("read audit records: %w", err)
			}
			return renderAuditRecords(cmd, records, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func renderAuditRecords(cmd *cobra.Command, records []auditstore.Record, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(cmd, records)
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No audit records")
		return nil
	}
	for _, record := range records {
		fmt.Fprintf(out, "%s  item=%s method=%s decision=%s confidence=%.2f run=%s\n",
			record.CreatedAt.Local().Format(time.RFC3339),
			record.ItemID,
			record.Method,
			record.Decision,
			record.Confidence,
			record.RunID)
	}
	return nil
}

func openAudit(ctx *commandContext) (*auditstore.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := auditstore.Open(cfg.Paths.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	return store, nil
}
