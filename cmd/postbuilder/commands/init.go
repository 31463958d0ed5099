package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/postbuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write postbuilder.yaml into (defaults to --config)"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultPath)
	}
	g.Logger.Info("Initializing configuration", "path", path, "force", i.Force)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Wrote %s\n", path)
	return nil
}
