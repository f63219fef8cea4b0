package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/config"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/logging"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/persistence"
)

// loader resolves the configuration once flags are parsed.
type loader struct {
	v          *viper.Viper
	configPath string
}

func (l *loader) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(l.v, l.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	l := &loader{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "testrecorder",
		Short:         "Record web interactions as annotated test plan steps",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	d := config.Default()
	cmd.PersistentFlags().StringVar(&l.configPath, "config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().Bool("debug", d.Debug, "Run in debug mode")
	cmd.PersistentFlags().String("catalogPath", d.CatalogPath, "SQLite file archiving exported plans (empty keeps them in memory)")
	cmd.PersistentFlags().String("exportDir", d.ExportDir, "Directory receiving exported files")
	_ = l.v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = l.v.BindPFlag("catalogPath", cmd.PersistentFlags().Lookup("catalogPath"))
	_ = l.v.BindPFlag("exportDir", cmd.PersistentFlags().Lookup("exportDir"))

	cmd.AddCommand(
		newServeCmd(l),
		newPlansCmd(l),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// openCatalog opens the SQLite catalog at path, or an in-memory catalog
// when path is empty.
func openCatalog(path string) (persistence.Catalog, func() error, error) {
	if path == "" {
		return persistence.NewInMemoryCatalog(), func() error { return nil }, nil
	}
	db, err := persistence.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	cat, err := persistence.NewSQLiteCatalog(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return cat, db.Close, nil
}
