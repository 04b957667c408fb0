package main

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/krisalay/memo-cache/types"
)

const (
	shortKeyLen  = 12
	previewRunes = 40
)

func (a *app) lsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "list entries, least recently used first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "full",
				Usage: "show full keys and values",
			},
		},
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			rows, err := v.rows()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "empty")
				return nil
			}

			full := cmd.Bool("full")
			cells := make([][]string, 0, len(rows))
			for _, r := range rows {
				k, val := r.Key, string(r.Value)
				if !full {
					k = truncate(k, shortKeyLen)
					val = truncate(val, previewRunes)
				}
				cells = append(cells, []string{
					k,
					humanize.Time(r.Written),
					humanize.Time(r.Read),
					humanize.Bytes(uint64(len(r.Value))),
					val,
				})
			}

			t := table.New().
				BorderBottom(false).
				BorderTop(false).
				BorderLeft(false).
				BorderRight(false).
				Border(lipgloss.HiddenBorder()).
				Headers("KEY", "WRITTEN", "READ", "SIZE", "VALUE").
				BorderHeader(false).
				Rows(cells...)

			fmt.Fprintln(a.out, t)
			return nil
		}),
	}
}

func (a *app) showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print one value as JSON",
		ArgsUsage: "KEY-PREFIX",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "gjson path into the value, e.g. items.0.name",
			},
		},
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			if cmd.Args().Len() != 1 {
				return types.Errorf(types.ErrInvalidOption, "show needs exactly one key prefix")
			}
			k, err := v.resolve(cmd.Args().First())
			if err != nil {
				return err
			}

			rows, err := v.rows()
			if err != nil {
				return err
			}
			for _, r := range rows {
				if r.Key != k {
					continue
				}
				if path := cmd.String("path"); path != "" {
					res := gjson.GetBytes(r.Value, path)
					if !res.Exists() {
						return types.Errorf(types.ErrKeyNotFound, "path %q in %s", path, truncate(k, shortKeyLen))
					}
					fmt.Fprintln(a.out, res.String())
					return nil
				}
				fmt.Fprintln(a.out, string(r.Value))
				return nil
			}
			return types.Errorf(types.ErrKeyNotFound, "%s", k)
		}),
	}
}

func (a *app) sizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "size",
		Usage: "print the number of entries",
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			fmt.Fprintf(a.out, "%d entries in %s\n", v.size(), v.location())
			return nil
		}),
	}
}

func (a *app) evictCommand() *cli.Command {
	return &cli.Command{
		Name:  "evict",
		Usage: "remove entries older than a duration",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "written-before", Usage: "last written more than this long ago"},
			&cli.DurationFlag{Name: "read-before", Usage: "last read more than this long ago"},
			&cli.DurationFlag{Name: "used-before", Usage: "last read or written more than this long ago"},
		},
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			policies := map[string]func(context.Context, time.Time) (int, error){
				"written-before": v.evictWrittenBefore,
				"read-before":    v.evictReadBefore,
				"used-before":    v.evictUsedBefore,
			}

			var chosen string
			for name := range policies {
				if !cmd.IsSet(name) {
					continue
				}
				if chosen != "" {
					return types.Errorf(types.ErrInvalidOption, "use only one of --written-before, --read-before, --used-before")
				}
				chosen = name
			}
			if chosen == "" {
				return types.Errorf(types.ErrInvalidOption, "evict needs --written-before, --read-before or --used-before")
			}

			cutoff := time.Now().Add(-cmd.Duration(chosen))
			n, err := policies[chosen](ctx, cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "evicted %d, %d left\n", n, v.size())
			return nil
		}),
	}
}

func (a *app) lruCommand() *cli.Command {
	return &cli.Command{
		Name:      "lru",
		Usage:     "evict up to N least recently used entries",
		ArgsUsage: "N",
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			n, err := strconv.Atoi(cmd.Args().First())
			if err != nil || n < 0 {
				return types.Errorf(types.ErrInvalidOption, "lru needs a non-negative count, got %q", cmd.Args().First())
			}

			removed, err := v.evictLRU(ctx, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "evicted %d, %d left\n", removed, v.size())
			return nil
		}),
	}
}

func (a *app) rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "delete entries by key prefix",
		ArgsUsage: "KEY-PREFIX...",
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			if cmd.Args().Len() == 0 {
				return types.Errorf(types.ErrInvalidOption, "rm needs at least one key prefix")
			}
			for _, prefix := range cmd.Args().Slice() {
				k, err := v.resolve(prefix)
				if err != nil {
					return err
				}
				if err := v.remove(ctx, k); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "removed", truncate(k, shortKeyLen))
			}
			return nil
		}),
	}
}

func (a *app) purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "remove every entry",
		Action: a.withStore(func(ctx context.Context, cmd *cli.Command, v view) error {
			n, err := v.clear(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "purged %d\n", n)
			return nil
		}),
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
