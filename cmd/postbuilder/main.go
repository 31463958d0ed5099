package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postbuilder/cmd/postbuilder/commands"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout}

	ctx := kong.Parse(&cli,
		kong.Name("postbuilder"),
		kong.Description("Turn a directory of Markdown posts into a site model."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := ctx.Run(&cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
