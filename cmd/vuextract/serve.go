package main

import (
	"context"
	"errors"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the language server over stdio",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "trace LSP messages to stderr",
			},
		},
		Action: runServe,
	}
}

func runServe(_ context.Context, cmd *cli.Command) error {
	verbose := cmd.Bool("verbose")
	if verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	server, err := lsp.NewServer(verbose)
	if err != nil {
		return err
	}
	log.Info("Starting language server")
	runErr := server.RunStdio()
	return errors.Join(runErr, server.Close())
}
