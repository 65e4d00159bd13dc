package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/chunkpass/chunkpass/internal/cli_helpers"
	"github.com/chunkpass/chunkpass/internal/exitcode"
	"github.com/chunkpass/chunkpass/internal/runtime"
	"github.com/chunkpass/chunkpass/pkg/api"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		exitcode.Exit(err)
	}
}

func newApp(stdout io.Writer, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "chunkpass",
		Usage:   "Lower modules, hoist shared constants and resolve requires across chunks",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON). Defaults to chunkpass.* next to the manifest",
				EnvVars: []string{"CHUNKPASS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "color",
				Value: "auto",
				Usage: "When to use color in diagnostics: auto, always, never",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warning",
				Usage: "Diagnostics to print: silent, info, warning, error",
			},
			&cli.IntFlag{
				Name:  "error-limit",
				Value: 10,
				Usage: "Stop printing errors after this many (0 for no limit)",
			},
		},
		Writer:    stdout,
		ErrWriter: stderr,

		// Exit codes are handled by main so tests can run the app
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			compileCmd(),
			inspectCmd(),
			runtimeCmd(),
		},
	}
}

func compileCmd() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Run every pass over the chunks in a manifest and print the result",
		ArgsUsage: "<manifest>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "outdir",
				Aliases: []string{"o"},
				Usage:   "Write one <chunk>.js file per chunk instead of printing to stdout",
			},
			&cli.BoolFlag{
				Name:  "runtime",
				Usage: "Include the runtime helpers before the first chunk",
			},
			&cli.BoolFlag{
				Name:  "timing",
				Usage: "Log how long each pass took (needs log.level = \"debug\" in the config)",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print a summary of chunks, constants and requires to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			manifest, options, err := setup(c)
			if err != nil {
				return err
			}
			options.IncludeRuntime = c.Bool("runtime")
			options.Timing = c.Bool("timing")

			result := api.Compile(manifest, options)
			if len(result.Errors) > 0 {
				return fmt.Errorf("compilation failed with %s", plural("error", len(result.Errors)))
			}

			if outdir := c.String("outdir"); outdir != "" {
				if err := writeChunks(outdir, result.Chunks); err != nil {
					return err
				}
			} else {
				for _, chunk := range result.Chunks {
					fmt.Fprint(c.App.Writer, chunkCode(chunk))
				}
			}

			if c.Bool("summary") {
				writeSummary(c.App.ErrWriter, result)
			}
			return nil
		},
	}
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the dependencies of every unit in a manifest",
		ArgsUsage: "<manifest>",
		Action: func(c *cli.Context) error {
			manifest, options, err := setup(c)
			if err != nil {
				return err
			}
			result := api.Inspect(manifest, options)
			if len(result.Errors) > 0 {
				return fmt.Errorf("inspection failed with %s", plural("error", len(result.Errors)))
			}
			writeInspection(c.App.Writer, result)
			return nil
		},
	}
}

func runtimeCmd() *cli.Command {
	return &cli.Command{
		Name:  "runtime",
		Usage: "Print the runtime helpers that generated code expects",
		Action: func(c *cli.Context) error {
			fmt.Fprint(c.App.Writer, strings.TrimLeft(runtime.Code, "\n"))
			return nil
		},
	}
}

func setup(c *cli.Context) (api.Manifest, api.CompileOptions, error) {
	var options api.CompileOptions
	if c.Args().Len() != 1 {
		return api.Manifest{}, options, exitcode.Set(fmt.Errorf("expected exactly one manifest path"), exitcode.Usage)
	}
	path := c.Args().First()
	manifest, err := readManifest(path)
	if err != nil {
		return api.Manifest{}, options, exitcode.Set(err, exitcode.Input)
	}

	stderrColor, note := cli_helpers.ParseColor(c.String("color"))
	if note != nil {
		return api.Manifest{}, options, exitcode.Set(note, exitcode.Usage)
	}
	level, note := cli_helpers.ParseLogLevel(c.String("log-level"))
	if note != nil {
		return api.Manifest{}, options, exitcode.Set(note, exitcode.Usage)
	}
	options.Color = stderrColor
	options.LogLevel = level
	options.ErrorLimit = c.Int("error-limit")
	if options.ConfigFile = c.String("config"); options.ConfigFile == "" {
		options.ConfigDir = filepath.Dir(path)
	}
	return manifest, options, nil
}

// Manifests are YAML. JSON manifests work too since JSON is valid YAML.
func readManifest(path string) (api.Manifest, error) {
	var manifest api.Manifest
	contents, err := os.ReadFile(path)
	if err != nil {
		return manifest, err
	}
	if err := yaml.Unmarshal(contents, &manifest); err != nil {
		return manifest, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

func chunkCode(chunk api.OutputChunk) string {
	var sb strings.Builder
	for _, unit := range chunk.Units {
		sb.WriteString(unit.Code)
	}
	return sb.String()
}

func writeChunks(outdir string, chunks []api.OutputChunk) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}
	for _, chunk := range chunks {
		path := filepath.Join(outdir, chunk.ID+".js")
		if err := os.WriteFile(path, []byte(chunkCode(chunk)), 0644); err != nil {
			return err
		}
	}
	return nil
}

func plural(noun string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, noun)
	}
	return fmt.Sprintf("%d %ss", count, noun)
}
