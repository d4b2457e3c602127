package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/version"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"bennypowers.dev/vuextract/internal/vue/template"
	"github.com/urfave/cli/v3"
)

func main() {
	app := newApp()
	err := app.Run(context.Background(), os.Args)
	template.ClosePool()
	expression.ClosePool()
	if err != nil {
		writeError(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "vuextract",
		Usage:   "extract Vue template fragments into new components",
		Version: version.Full(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log-level"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			extractCommand(),
			inspectCommand(),
		},
	}
}

func positionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Vue single-file component (required)",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "line",
			Aliases:  []string{"l"},
			Usage:    "1-based line where the fragment starts (required)",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "column",
			Aliases:  []string{"c"},
			Usage:    "1-based column where the fragment starts (required)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "root",
			Value: ".",
			Usage: "project root holding the vuextract config",
		},
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeError(w io.Writer, err error) {
	enc := json.NewEncoder(w)
	_ = enc.Encode(map[string]string{
		"error": err.Error(),
	})
}
