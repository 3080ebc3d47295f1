package main

import (
	"fmt"
	"io"

	"github.com/kjk/dumpbuf/config"
	"github.com/kjk/dumpbuf/filedb"
	"github.com/kjk/dumpbuf/log"
	"github.com/kjk/dumpbuf/record"
	"github.com/kjk/dumpbuf/service"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

// app is shared by all commands of a single invocation
type app struct {
	stdout io.Writer

	// flags
	dbPath     string
	configPath string
	verbose    bool

	cfg *config.Config
	// if nil, commands are run with service.ShellRunner
	runner service.Runner
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.verbose {
		cfg.Verbose = true
	}
	a.cfg = cfg
	log.Init(&log.Config{
		Dir:     cfg.LogDir,
		Verbose: cfg.Verbose,
	})
	log.Verbosef("config:\n%s", spew.Sdump(cfg.Redacted()))
	return nil
}

// withStore opens the database, calls fn and closes the database,
// which writes changes back to disk. Close error is returned
// if fn succeeded.
func (a *app) withStore(fn func(repo record.Repository) error) (err error) {
	db, err := filedb.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		errClose := db.Close()
		if err == nil {
			err = errClose
		}
	}()
	return fn(record.NewFileRepository(db))
}

func (a *app) shellRunner() service.Runner {
	if a.runner != nil {
		return a.runner
	}
	return &service.ShellRunner{
		Shell:  a.cfg.Shell,
		Stdout: a.stdout,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dumpbuf",
		Short: "Store text snippets under a key and run them later",
		Long: `dumpbuf keeps a buffer of named text snippets (usually shell commands)
in a single file in your home directory.

  dumpbuf add ports lsof -i -P -n
  dumpbuf exec ports`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.dbPath, "db", "", "path of database file (default ~/"+config.DefaultDBName+")")
	flags.StringVar(&a.configPath, "config", "", "path of config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging to stderr")

	root.AddCommand(
		newAddCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newRmCmd(a),
		newExecCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newDiffCmd(a),
		newBackupCmd(a),
	)
	return root
}
