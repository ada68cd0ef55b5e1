// fhirx compiles FHIR StructureDefinition documents into typed Go models.
//
//	fhirx init                 write a default fhirx.yaml
//	fhirx load [--url URL]     download the schema document
//	fhirx compile [--watch]    generate the models
//	fhirx patch                re-export hand-written overrides
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/syssam/fhirx/compiler/gen"
	"github.com/syssam/fhirx/compiler/load"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fhirx: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp(stderr io.Writer) *cli.App {
	app := &cli.App{
		Name:      "fhirx",
		Usage:     "generate Go models from FHIR StructureDefinitions",
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration",
				Value:   "fhirx.yaml",
				EnvVars: []string{"FHIRX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity: debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"FHIRX_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log output format: text or json",
				Value:   "text",
				EnvVars: []string{"FHIRX_LOG_FORMAT"},
			},
		},
		Before: func(cctx *cli.Context) error {
			logger, err := newLogger(stderr, cctx.String("log-level"), cctx.String("log-format"))
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	configFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "structure-definition",
			Usage:   "directory holding the schema document",
			EnvVars: []string{"FHIRX_STRUCTURE_DEFINITION"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "directory generated code is written to",
			EnvVars: []string{"FHIRX_OUTPUT"},
		},
		&cli.StringFlag{
			Name:    "package",
			Usage:   "import path of the output directory",
			EnvVars: []string{"FHIRX_PACKAGE"},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "init",
			Usage:  "write a configuration file with the defaults",
			Flags:  configFlags,
			Action: runInit,
		},
		{
			Name:  "load",
			Usage: "download the schema document into the structure-definition path",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "url",
					Usage:   "where to download the schema document from",
					EnvVars: []string{"FHIRX_URL"},
				},
				&cli.IntFlag{
					Name:  "retries",
					Usage: "retries of failed downloads",
					Value: 3,
				},
			}, configFlags...),
			Action: runLoad,
		},
		{
			Name:  "compile",
			Usage: "generate models from the schema document",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:  "watch",
					Usage: "recompile whenever the schema document changes",
				},
				&cli.BoolFlag{
					Name:    "strict",
					Usage:   "fail on references to unknown types",
					Value:   true,
					EnvVars: []string{"FHIRX_STRICT"},
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of types compiled in parallel (0 for GOMAXPROCS)",
				},
			}, configFlags...),
			Action: runCompile,
		},
		{
			Name:   "patch",
			Usage:  "re-export the overrides of the extensions directory",
			Flags:  configFlags,
			Action: runPatch,
		},
	}
	return app
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// loadConfig reads the configuration file and applies the flags that are
// set on top of it.
func loadConfig(cctx *cli.Context) (*gen.Config, error) {
	cfg, err := gen.LoadConfig(cctx.String("config"))
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{gen.WithLogger(slog.Default())}
	if cctx.IsSet("structure-definition") {
		opts = append(opts, gen.WithStructureDefinition(cctx.String("structure-definition"), ""))
	}
	if cctx.IsSet("output") {
		opts = append(opts, gen.WithOutputPath(cctx.String("output")))
	}
	if cctx.IsSet("package") {
		opts = append(opts, gen.WithPackage(cctx.String("package")))
	}
	if cctx.IsSet("url") {
		opts = append(opts, gen.WithURL(cctx.String("url")))
	}
	if cctx.IsSet("strict") {
		opts = append(opts, gen.WithStrict(cctx.Bool("strict")))
	}
	if cctx.IsSet("workers") && cctx.Int("workers") > 0 {
		opts = append(opts, gen.WithWorkers(cctx.Int("workers")))
	}
	if err := cfg.ApplyAll(opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCompiler(cctx *cli.Context) (*gen.Compiler, error) {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return nil, err
	}
	return gen.NewCompiler(cfg)
}

func runInit(cctx *cli.Context) error {
	path := cctx.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if err := gen.SaveConfig(path, cfg); err != nil {
		return err
	}
	slog.Info("configuration written", "path", path)
	return nil
}

func runLoad(cctx *cli.Context) error {
	c, err := newCompiler(cctx)
	if err != nil {
		return err
	}
	return c.Load(cctx.Context, load.WithMaxRetries(cctx.Int("retries")))
}

func runCompile(cctx *cli.Context) error {
	c, err := newCompiler(cctx)
	if err != nil {
		return err
	}
	_, err = c.Compile(cctx.Context)
	if !cctx.Bool("watch") {
		return err
	}
	if err != nil {
		slog.Error("compilation failed", "error", err)
	}
	return watch(cctx.Context, c.Config().StructureDefinition.File(), defaultDebounce, func() {
		if _, err := c.Compile(cctx.Context); err != nil {
			slog.Error("compilation failed", "error", err)
		}
	})
}

func runPatch(cctx *cli.Context) error {
	c, err := newCompiler(cctx)
	if err != nil {
		return err
	}
	err = c.Patch(cctx.Context)
	if errors.Is(err, gen.ErrEnvironment) {
		return fmt.Errorf("%w (run compile first and create the extensions directory)", err)
	}
	return err
}

// defaultDebounce coalesces the bursts of events editors emit on save.
const defaultDebounce = 200 * time.Millisecond
