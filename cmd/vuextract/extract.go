package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/vuextract/internal/config"
	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/filehost"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/synth"
	"bennypowers.dev/vuextract/internal/typeoracle"
	"bennypowers.dev/vuextract/internal/typeserver"
	"bennypowers.dev/vuextract/internal/uriutil"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"github.com/urfave/cli/v3"
)

func extractCommand() *cli.Command {
	flags := append(positionFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "path of the new component, relative to the file's directory",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "component name (default: derived from --out)",
		},
		&cli.StringFlag{
			Name:  "type-server",
			Usage: "language server command answering hovers, e.g. \"vue-language-server --stdio\"",
		},
	)
	return &cli.Command{
		Name:   "extract",
		Usage:  "move a template fragment into a new component file",
		Flags:  flags,
		Action: runExtract,
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "show what an extraction would do without writing anything",
		Flags:  positionFlags(),
		Action: runInspect,
	}
}

// session holds what both commands derive from their flags
type session struct {
	root string
	cfg  config.Config
	uri  string
	sel  extract.Selection
}

func newSession(cmd *cli.Command) (*session, error) {
	root, err := filepath.Abs(cmd.String("root"))
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return nil, err
	}
	file, err := filepath.Abs(cmd.String("file"))
	if err != nil {
		return nil, err
	}

	line, column := cmd.Int("line"), cmd.Int("column")
	if line < 1 || column < 1 {
		return nil, fmt.Errorf("line and column start at 1, got %d:%d", line, column)
	}
	start := position.Position{Line: line - 1, Character: column - 1}
	return &session{
		root: root,
		cfg:  cfg,
		uri:  uriutil.PathToURI(file),
		sel:  extract.Selection{Start: start, End: start},
	}, nil
}

func (s *session) extractor(host *filehost.Host) (*extract.Extractor, error) {
	dialect, err := expression.ParseDialect(s.cfg.ExpressionDialect)
	if err != nil {
		return nil, err
	}
	return &extract.Extractor{
		Documents:   host,
		Edits:       host,
		Files:       host,
		Paths:       host,
		Parser:      expression.NewParser(dialect),
		Generator:   synth.Generator{FallbackType: s.cfg.FallbackType, ScriptLang: s.cfg.ScriptLang},
		DefaultName: s.cfg.DefaultComponentName,
	}, nil
}

func runInspect(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	host := &filehost.Host{}
	ex, err := s.extractor(host)
	if err != nil {
		return err
	}
	text, err := host.Text(context.Background(), s.uri)
	if err != nil {
		return err
	}
	preview, err := ex.Preview(text, s.sel)
	if err != nil {
		return errors.New(extract.Message(err))
	}
	return writeJSON(stdout(cmd), preview)
}

type extractOutput struct {
	Path       string                          `json:"path"`
	Name       string                          `json:"name"`
	Invocation string                          `json:"invocation"`
	Props      []extract.IdentifierTypeBinding `json:"props"`
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if out == "" {
		out = synth.SuggestedFile(s.cfg.DefaultComponentName)
	}
	host := &filehost.Host{Path: out}
	ex, err := s.extractor(host)
	if err != nil {
		return err
	}

	if spec := s.typeServer(cmd.String("type-server")); spec != nil {
		client, err := s.startTypeServer(ctx, spec, host)
		if err != nil {
			log.Warn("Type server unavailable, props will use the fallback type: %v", err)
		} else {
			defer func() {
				if err := client.Close(ctx); err != nil {
					log.Warn("Failed to stop type server: %v", err)
				}
			}()
			ex.Types = typeoracle.HoverOracle{Service: client}
		}
	}

	res, err := ex.Run(ctx, extract.Request{URI: s.uri, Selection: s.sel, Name: cmd.String("name")})
	if err != nil {
		return errors.New(extract.Message(err))
	}
	return writeJSON(stdout(cmd), extractOutput{
		Path:       res.Path,
		Name:       res.Name,
		Invocation: res.Invocation,
		Props:      res.Bindings,
	})
}

// typeServer returns the command from the flag, or the configured one
func (s *session) typeServer(flag string) *config.TypeServer {
	if fields := strings.Fields(flag); len(fields) > 0 {
		return &config.TypeServer{Command: fields[0], Args: fields[1:]}
	}
	return s.cfg.TypeServer
}

func (s *session) startTypeServer(ctx context.Context, spec *config.TypeServer, host *filehost.Host) (*typeserver.Client, error) {
	program, args, err := spec.Resolve(s.root)
	if err != nil {
		return nil, err
	}
	return typeserver.Start(ctx, typeserver.Options{
		Command:   program,
		Args:      args,
		RootURI:   uriutil.PathToURI(s.root),
		Documents: host,
	})
}
