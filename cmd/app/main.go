package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/morphovis/internal"
	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/index"
	"github.com/starford/morphovis/internal/parser"
	"github.com/starford/morphovis/internal/skeleton"
	pkgconfig "github.com/starford/morphovis/pkg/config"
)

// loadConfig reads the --config file. Commands that work on a single file
// fall back to the defaults when it does not exist.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if required {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func syncLibrary(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	run, err := internal.Sync(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("sync error: %w", err)
	}
	return writeJSON(cmd.Root().Writer, run)
}

func parseFile(cmd *cli.Command) (*parser.Result, error) {
	file := cmd.Args().First()
	if file == "" {
		return nil, fmt.Errorf("an .swc file argument is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return parser.Parse(data, index.Label(filepath.ToSlash(file)))
}

func analyze(_ context.Context, cmd *cli.Command) error {
	res, err := parseFile(cmd)
	if err != nil {
		return err
	}
	catalog := analysis.DefaultCatalog()
	out := cmd.Root().Writer

	if variable := cmd.String("distribution"); variable != "" {
		d, ok := analysis.LookupDistribution(variable)
		if !ok {
			return fmt.Errorf("unknown distribution %q", variable)
		}
		return writeJSON(out, d.Evaluate(res.Morphology))
	}

	if variable := cmd.String("kernel"); variable != "" {
		item, ok := catalog.Lookup(variable)
		if !ok {
			return fmt.Errorf("unknown kernel %q", variable)
		}
		result := item.Evaluate(res.Morphology)
		if cmd.Bool("json") {
			return writeJSON(out, result)
		}
		_, err := fmt.Fprintln(out, result.String())
		return err
	}

	report := catalog.Run(res.Morphology)
	if cmd.Bool("json") {
		return writeJSON(out, report)
	}
	_, err = io.WriteString(out, report.String())
	return err
}

func build(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	res, err := parseFile(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	b, err := skeleton.NewBuilder(res.Morphology, cfg.Skeleton.Options, skeleton.WithLogger(logger))
	if err != nil {
		return err
	}
	objects, err := b.Build(skeleton.ParseMode(cmd.String("mode")))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch cmd.String("format") {
	case "json":
		return writeJSON(out, objects)
	case "obj", "":
		return skeleton.WriteOBJ(out, objects)
	default:
		return fmt.Errorf("unknown format %q (want obj or json)", cmd.String("format"))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cmd := &cli.Command{
		Name:   "morphovis",
		Usage:  "Neuron morphology analysis and skeleton reconstruction over a library of SWC files",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, watcher and SSE stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:   "sync",
				Usage:  "Reconcile the index with the library once and print the run",
				Action: syncLibrary,
			},
			{
				Name:      "analyze",
				Usage:     "Run the kernel catalog on one SWC file",
				ArgsUsage: "<file.swc>",
				Action:    analyze,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kernel", Aliases: []string{"k"}, Usage: "Evaluate a single kernel variable"},
					&cli.StringFlag{Name: "distribution", Aliases: []string{"d"}, Usage: "Print a per-location distribution as JSON (SegmentLength, SectionLength, SampleRadius)"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"},
				},
			},
			{
				Name:      "build",
				Usage:     "Reconstruct the polyline skeleton of one SWC file",
				ArgsUsage: "<file.swc>",
				Action:    build,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Object grouping (single, per-arbor)", Value: "single"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format (obj, json)", Value: "obj"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
