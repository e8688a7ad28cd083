package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/osr-alliance/backend-crm/backup"
	"github.com/spf13/cobra"
)

var (
	exportOutput  string
	snapshotLimit int
	fromSnapshot  bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the export here instead of stdout")
	importCmd.Flags().BoolVar(&fromSnapshot, "from-snapshot", false, "import the latest snapshot from database_url instead of a file")

	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 20, "number of snapshots to list")
	snapshotCmd.AddCommand(snapshotTakeCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every record as JSON",
	Long: `Export contacts, schedules, projects and opportunities as one JSON document.

Examples:
  crmd export -o crm-backup.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import records from an export document",
	Long: `Import an export document. Records get new ids; a per-type report is printed.

Examples:
  crmd import crm-backup.json
  cat crm-backup.json | crmd import -
  crmd import --from-snapshot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage export snapshots stored in postgres",
}

var snapshotTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Export now and store the document as a snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotTake,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

// backupService wires a backup.Service to redis; the returned func releases the client
func backupService() (*backup.Service, string, func(), error) {
	cfg, client, err := setup()
	if err != nil {
		return nil, "", nil, err
	}

	st, err := openStore(cfg, client)
	if err != nil {
		client.Close()
		return nil, "", nil, err
	}
	return backup.New(st, nil), cfg.DatabaseURL, func() { client.Close() }, nil
}

func openArchive(ctx context.Context, databaseURL string) (*backup.SnapshotStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database_url is not configured")
	}
	return backup.OpenSnapshotStore(ctx, databaseURL)
}

func runExport(cmd *cobra.Command, args []string) error {
	service, _, done, err := backupService()
	if err != nil {
		return err
	}
	defer done()

	doc, err := service.Export(cmd.Context())
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", doc.Data.Count(), exportOutput)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	service, databaseURL, done, err := backupService()
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()

	var doc *backup.Document
	switch {
	case fromSnapshot:
		if len(args) > 0 {
			return fmt.Errorf("--from-snapshot takes no file argument")
		}
		doc, err = latestSnapshot(ctx, databaseURL)
	case len(args) == 0 || args[0] == "-":
		doc, err = backup.Decode(cmd.InOrStdin())
	default:
		doc, err = decodeFile(args[0])
	}
	if err != nil {
		return err
	}

	report, err := service.Import(ctx, doc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func decodeFile(path string) (*backup.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return backup.Decode(f)
}

func latestSnapshot(ctx context.Context, databaseURL string) (*backup.Document, error) {
	archive, err := openArchive(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	snap, err := archive.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Document()
}

func runSnapshotTake(cmd *cobra.Command, args []string) error {
	service, databaseURL, done, err := backupService()
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	archive, err := openArchive(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer archive.Close()

	id, err := backup.NewScheduler(service, archive, nil).Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored snapshot %d\n", id)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	_, databaseURL, done, err := backupService()
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	archive, err := openArchive(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer archive.Close()

	snaps, err := archive.List(ctx, snapshotLimit)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\tversion %s\n", s.ID, s.TakenAt.UTC().Format("2006-01-02T15:04:05Z"), s.Version)
	}
	return nil
}
