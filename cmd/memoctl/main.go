// Command memoctl inspects and prunes a persisted memo cache.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/krisalay/memo-cache/config"
	"github.com/krisalay/memo-cache/logging"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "memoctl:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs. configPath is filled by the
// --config flag before the other flags consult the file.
type app struct {
	out        io.Writer
	configPath string
}

func newApp(out io.Writer) *cli.Command {
	a := &app{out: out}
	src := altsrc.NewStringPtrSourcer(&a.configPath)

	return &cli.Command{
		Name:   "memoctl",
		Usage:  "inspect and prune a persisted memo cache",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML config file",
				Destination: &a.configPath,
				Sources:     cli.NewValueSourceChain(cli.EnvVar("MEMOCACHE_CONFIG")),
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "cache directory",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("MEMOCACHE_DIR"),
					yaml.YAML("store.cache_dir", src),
				),
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "snapshot file name inside the cache directory",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("MEMOCACHE_FILE"),
					yaml.YAML("store.filename", src),
				),
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "snapshot encoding: json or yaml",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("store.codec", src),
				),
			},
			&cli.BoolFlag{
				Name:  "compress",
				Usage: "snapshot is zstd compressed",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("store.compress", src),
				),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "warn",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("MEMOCACHE_LOG"),
					yaml.YAML("log.level", src),
				),
			},
		},
		Commands: []*cli.Command{
			a.lsCommand(),
			a.showCommand(),
			a.sizeCommand(),
			a.evictCommand(),
			a.lruCommand(),
			a.rmCommand(),
			a.purgeCommand(),
		},
	}
}

// open loads the config, applies flag overrides and opens the store.
func (a *app) open(ctx context.Context, cmd *cli.Command) (view, *zap.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}

	if cmd.IsSet("dir") {
		cfg.Store.CacheDir = cmd.String("dir")
	}
	if cmd.IsSet("file") {
		cfg.Store.Filename = cmd.String("file")
	}
	if cmd.IsSet("codec") {
		cfg.Store.Codec = cmd.String("codec")
	}
	if cmd.IsSet("compress") {
		cfg.Store.Compress = cmd.Bool("compress")
	}
	cfg.Log.Level = cmd.String("log-level")

	// One-shot process: every change must be on disk before exit.
	cfg.Store.WriteBack = false

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.Options(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	v, err := openView(ctx, cfg.Store.Codec, opts)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("store opened", zap.String("location", v.location()), zap.Int("entries", v.size()))
	return v, logger, nil
}

// withStore runs fn against an open store and closes it afterwards.
func (a *app) withStore(fn func(ctx context.Context, cmd *cli.Command, v view) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		v, logger, err := a.open(ctx, cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		runErr := fn(ctx, cmd, v)
		if err := v.close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
