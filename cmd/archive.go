package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/pkg/export"
)

var (
	exportFormat   string
	exportOut      string
	exportSince    time.Duration
	exportKind     string
	exportState    string
	exportProvider string
	exportLimit    int
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Closed incident archive commands",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived incidents as CSV or JSON",
	RunE:  runArchiveExport,
}

func init() {
	f := archiveExportCmd.Flags()
	f.StringVarP(&exportFormat, "format", "f", "csv", "output format: csv or json")
	f.StringVarP(&exportOut, "out", "o", "", "output file, stdout when empty")
	f.DurationVar(&exportSince, "since", 0, "only incidents closed within this duration")
	f.StringVar(&exportKind, "kind", "", "filter by incident kind")
	f.StringVar(&exportState, "state", "", "filter by final state")
	f.StringVar(&exportProvider, "provider", "", "filter by provider id")
	f.IntVar(&exportLimit, "limit", 0, "maximum number of records")
	archiveCmd.AddCommand(archiveExportCmd)
	rootCmd.AddCommand(archiveCmd)
}

func exportQuery() (archive.Query, error) {
	q := archive.Query{ProviderID: exportProvider, Limit: exportLimit}
	if exportSince > 0 {
		q.Start = time.Now().Add(-exportSince)
	}
	if exportKind != "" {
		k, err := model.ParseKind(exportKind)
		if err != nil {
			return q, err
		}
		q.Kind = &k
	}
	if exportState != "" {
		s, err := model.ParseState(exportState)
		if err != nil {
			return q, err
		}
		q.State = &s
	}
	return q, nil
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	write := export.WriteCSV
	switch exportFormat {
	case "csv":
	case "json":
		write = export.WriteJSON
	default:
		return fmt.Errorf("unknown format %s", exportFormat)
	}
	q, err := exportQuery()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := archive.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return write(w, recs)
}
