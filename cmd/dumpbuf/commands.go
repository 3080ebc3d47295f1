package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kjk/dumpbuf/record"
	"github.com/kjk/dumpbuf/service"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
	"gopkg.in/yaml.v3"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <key> <value...>",
		Short: "Add new record to the storage",
		Long: `Add new record to the storage.
Everything after the key is the value, including flags,
so 'add ls ls -la' stores 'ls -la' under 'ls'.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := service.AddQuery{
				Key:   args[0],
				Value: strings.Join(args[1:], " "),
			}
			return a.withStore(func(repo record.Repository) error {
				if err := service.Add(repo, q); err != nil {
					return err
				}
				a.printf("Added record with key %q\n", q.Key)
				return nil
			})
		},
	}
	// stop parsing flags at the key so that value can have flags
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get record with specific key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(repo record.Repository) error {
				rec, err := service.Get(repo, service.GetQuery{Key: args[0]})
				if err != nil {
					return err
				}
				a.printf("%s\n", rec.Value)
				return nil
			})
		},
	}
}

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOON = "toon"
)

// formatListText formats as bracketed list: [a, b] or [{ key: a, value: b }]
func formatListText(res *service.ListResult) string {
	var parts []string
	if res.KeysOnly {
		parts = res.Keys
	} else {
		for _, r := range res.Records {
			parts = append(parts, r.String())
		}
	}
	return "[" + strings.Join(parts, ", ") + "]\n"
}

func formatList(res *service.ListResult, format string) ([]byte, error) {
	var v any = res.Records
	if res.KeysOnly {
		v = res.Keys
	}
	switch format {
	case formatText, "":
		return []byte(formatListText(res)), nil
	case formatJSON:
		d, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return pretty.Pretty(d), nil
	case formatYAML:
		return yaml.Marshal(v)
	case formatTOON:
		d, err := toon.Marshal(v)
		if err != nil {
			return nil, err
		}
		if len(d) > 0 && d[len(d)-1] != '\n' {
			d = append(d, '\n')
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown format '%s', must be one of: %s, %s, %s, %s", format, formatText, formatJSON, formatYAML, formatTOON)
}

func newListCmd(a *app) *cobra.Command {
	var (
		keysOnly bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all available records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(repo record.Repository) error {
				res, err := service.List(repo, service.ListQuery{KeysOnly: keysOnly})
				if err != nil {
					return err
				}
				if res.Keys == nil {
					res.Keys = []string{}
				}
				if res.Records == nil {
					res.Records = []record.Record{}
				}
				d, err := formatList(res, format)
				if err != nil {
					return err
				}
				_, err = a.stdout.Write(d)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&keysOnly, "keys-only", false, "only list keys")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, json, yaml or toon")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "rm <key> | --all",
		Short: "Delete record from storage by key or all records at once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := service.DeleteQuery{All: all}
			if len(args) > 0 {
				q.Key = args[0]
			}
			return a.withStore(func(repo record.Repository) error {
				msg, err := service.Delete(repo, q)
				if err != nil {
					return err
				}
				a.printf("%s\n", msg)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete all records")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <key>",
		Short: "Execute record with specific key as a shell command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the command can use dumpbuf itself, so database must be
			// closed before it runs
			var cmdLine string
			err := a.withStore(func(repo record.Repository) error {
				var err error
				cmdLine, err = service.CommandLine(repo, service.ExecQuery{Key: args[0]})
				return err
			})
			if err != nil {
				return err
			}
			return a.shellRunner().Run(cmd.Context(), cmdLine)
		},
	}
}
