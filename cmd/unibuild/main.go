package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/unibuild/cmd/unibuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd   `cmd:"" help:"Compile bundler config artifacts"`
		Inspect commands.InspectCmd `cmd:"" help:"Print the normalized config and plugin list"`
		Doctor  commands.DoctorCmd  `cmd:"" help:"Scan entry dependency graphs for size and duplicates"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
