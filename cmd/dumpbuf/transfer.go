package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjk/dumpbuf/filedb"
	"github.com/kjk/dumpbuf/log"
	"github.com/kjk/dumpbuf/record"
	"github.com/kjk/dumpbuf/remote"
	"github.com/kjk/dumpbuf/service"
	"github.com/kjk/dumpbuf/snapshot"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export all records to a file, compressed if it ends with .zst or .br",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return a.withStore(func(repo record.Repository) error {
				records, err := repo.All()
				if err != nil {
					return err
				}
				if err = snapshot.ExportFile(path, records); err != nil {
					return err
				}
				a.printf("Exported %d records to %s\n", len(records), path)
				return nil
			})
		},
	}
}

// loadRecords reads records from exported file, database file or http(s) url
func (a *app) loadRecords(cmd *cobra.Command, src string) ([]record.Record, error) {
	if !snapshot.IsURL(src) {
		return snapshot.ImportFile(src)
	}
	client, err := snapshot.NewDefaultTimeoutClient(a.cfg.HTTPProxy)
	if err != nil {
		return nil, fmt.Errorf("invalid http_proxy: %w", err)
	}
	return snapshot.Fetch(cmd.Context(), client, src)
}

func newImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file-or-url>",
		Short: "Import records from an exported file, a database file or a url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.loadRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(repo record.Repository) error {
				nAdded, nSkipped := 0, 0
				for _, rec := range records {
					q := service.AddQuery{Key: rec.Key, Value: rec.Value}
					err := service.Add(repo, q)
					if errors.Is(err, record.ErrDuplicateKey) {
						if !replace {
							log.Verbosef("skipping existing key %q\n", rec.Key)
							nSkipped++
							continue
						}
						if err = repo.Remove(rec.Key); err != nil {
							return err
						}
						err = service.Add(repo, q)
					}
					if err != nil {
						return fmt.Errorf("failed to import key %q: %w", rec.Key, err)
					}
					nAdded++
				}
				a.printf("Imported %d records, skipped %d existing\n", nAdded, nSkipped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "over-write records with existing keys")
	return cmd
}

func recordsToMap(records []record.Record) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		m[r.Key] = r.Value
	}
	return m
}

// unifiedDiff returns diff of records in database file format
func unifiedDiff(a []record.Record, b []record.Record, nameA, nameB string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(filedb.Serialize(recordsToMap(a)))),
		B:        difflib.SplitLines(string(filedb.Serialize(recordsToMap(b)))),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file-or-url>",
		Short: "Show differences between the database and an exported or database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			other, err := a.loadRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(repo record.Repository) error {
				records, err := repo.All()
				if err != nil {
					return err
				}
				s, err := unifiedDiff(records, other, a.cfg.DBPath, args[0])
				if err != nil {
					return err
				}
				if s == "" {
					a.printf("No differences\n")
					return nil
				}
				a.printf("%s", s)
				return nil
			})
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy database file to or from remote configured in config.yaml",
	}
	push := &cobra.Command{
		Use:   "push",
		Short: "Upload database file to remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := remote.New(&a.cfg.Remote)
			if err != nil {
				return err
			}
			// don't upload a file we can't read back
			if err = a.withStore(func(repo record.Repository) error { return nil }); err != nil {
				return err
			}
			if err = backend.Push(cmd.Context(), a.cfg.DBPath); err != nil {
				return fmt.Errorf("failed to upload to %s: %w", backend, err)
			}
			a.printf("Uploaded %s to %s\n", a.cfg.DBPath, backend)
			return nil
		},
	}
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Download database file from remote, replacing local file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := remote.New(&a.cfg.Remote)
			if err != nil {
				return err
			}
			// replace target of a symlink, not the link
			dbPath := a.cfg.DBPath
			if p, err := filepath.EvalSymlinks(dbPath); err == nil {
				dbPath = p
			}
			tmpPath := dbPath + ".pull"
			defer os.Remove(tmpPath)
			if err = backend.Pull(cmd.Context(), tmpPath); err != nil {
				return fmt.Errorf("failed to download from %s: %w", backend, err)
			}
			d, err := os.ReadFile(tmpPath)
			if err != nil {
				return err
			}
			if _, err = filedb.Parse(d); err != nil {
				return fmt.Errorf("downloaded file is not a valid database: %w", err)
			}
			if err = os.Rename(tmpPath, dbPath); err != nil {
				return err
			}
			a.printf("Downloaded %s to %s\n", backend, a.cfg.DBPath)
			return nil
		},
	}
	cmd.AddCommand(push, pull)
	return cmd
}
