package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	testrecorder "github.com/JHodgkins/Test-Recorder-Extension"
)

var errNoCatalog = errors.New("no catalog configured: set --catalogPath or catalogPath in the config file")

func newPlansCmd(l *loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect and export archived test plans",
	}
	cmd.AddCommand(newPlansListCmd(l), newPlansExportCmd(l))
	return cmd
}

func openArchive(l *loader) (*testrecorder.Archive, func() error, *zap.Logger, error) {
	cfg, logger, err := l.load()
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.CatalogPath == "" {
		return nil, nil, logger, errNoCatalog
	}
	cat, closeCatalog, err := openCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to open plan catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		return nil, nil, logger, err
	}
	return &testrecorder.Archive{Catalog: cat, Dir: cfg.ExportDir}, closeCatalog, logger, nil
}

func newPlansListCmd(l *loader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived plans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, closeCatalog, _, err := openArchive(l)
			if err != nil {
				return err
			}
			defer func() { _ = closeCatalog() }()

			plans, err := archive.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTEPS\tCREATED")
			for _, p := range plans {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.StepCount, p.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newPlansExportCmd(l *loader) *cobra.Command {
	var workbook bool
	cmd := &cobra.Command{
		Use:     "export <id>",
		Short:   "Write the CSV and screenshot ZIP of an archived plan",
		Example: "  testrecorder plans export 01HZX3K2Q8 --xlsx --exportDir ./out",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, closeCatalog, logger, err := openArchive(l)
			if err != nil {
				return err
			}
			defer func() { _ = closeCatalog() }()

			files, err := archive.Export(cmd.Context(), args[0], workbook)
			if err != nil {
				logger.Error("failed to export plan", zap.String("id", args[0]), zap.Error(err))
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&workbook, "xlsx", false, "Also write an XLSX workbook with embedded screenshots")
	return cmd
}
