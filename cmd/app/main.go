package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/awesomeview/internal"
	pkgconfig "github.com/starford/awesomeview/pkg/config"
)

var version = "dev"

// loadConfig reads the optional config file and applies the global flag
// overrides. The result is validated again when the application starts.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if loaded {
		slog.Debug("config loaded", slog.String("path", configPath))
	}

	if cmd.IsSet("source") {
		cfg.Sources.Paths = cmd.StringSlice("source")
	}
	if cmd.IsSet("exclude-tag") {
		cfg.Sources.ExcludeTags = cmd.StringSlice("exclude-tag")
	}
	if cmd.IsSet("cache") {
		cfg.Cache.Path = cmd.String("cache")
	}
	if cmd.IsSet("watch") {
		cfg.Watch.Enabled = cmd.Bool("watch")
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func query(cmd *cli.Command) internal.Query {
	return internal.Query{
		Search: cmd.String("query"),
		Topics: cmd.StringSlice("topic"),
		Tags:   cmd.StringSlice("tag"),
		Mode:   cmd.String("mode"),
		JSON:   cmd.Bool("json"),
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, opts...)
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Case-insensitive substring matched against title, description and tags",
		},
		&cli.StringSliceFlag{
			Name:  "topic",
			Usage: "Keep items of this topic (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Keep items carrying this tag (repeatable)",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "How several tags combine: or, and",
			Value: "or",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON",
		},
	}
}

func watchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "watch",
		Usage: "Regenerate when a source file changes",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    internal.AppName,
		Usage:   "Browse, search and filter awesome lists written in markdown",
		Version: version,
		Action:  runTUI,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.toml or .yaml)",
				DefaultText: internal.DefaultConfigPath(),
				Value:       internal.DefaultConfigPath(),
				Sources:     cli.EnvVars("AWESOME_LIST_VIEW_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Markdown file or directory to load (repeatable, replaces the configured sources)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-tag",
				Usage: "Drop items carrying this tag (repeatable)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Path to the JSON cache file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Browse the lists interactively (default)",
				Flags:  []cli.Flag{watchFlag()},
				Action: runTUI,
			},
			{
				Name:  "list",
				Usage: "Print the items matching a query",
				Flags: queryFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.List(ctx, query(cmd), opts...)
				},
			},
			{
				Name:  "topics",
				Usage: "Print topics with their counts under a query",
				Flags: queryFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Topics(ctx, query(cmd), opts...)
				},
			},
			{
				Name:  "tags",
				Usage: "Print tags with their counts under a query",
				Flags: queryFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Tags(ctx, query(cmd), opts...)
				},
			},
			{
				Name:  "stats",
				Usage: "Print collection statistics",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Stats(ctx, cmd.Bool("json"), opts...)
				},
			},
			{
				Name:  "regenerate",
				Usage: "Re-parse every source and rewrite the cache",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Regenerate(ctx, opts...)
				},
			},
			{
				Name:  "validate",
				Usage: "Check the settings and sources",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Validate(ctx, opts...)
				},
			},
			{
				Name:  "serve",
				Usage: "Serve the HTTP API with server-sent reload events",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port",
						Sources: cli.EnvVars("HTTP_PORT"),
					},
					watchFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					if cmd.IsSet("port") {
						cfg.App.HTTP.Port = int(cmd.Int("port"))
					}
					if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
						return fmt.Errorf("app run error: %w", err)
					}
					return nil
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve the query tools over MCP on stdio",
				Flags: []cli.Flag{watchFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, version, opts...)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
