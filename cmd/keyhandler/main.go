package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/keyhandler/cmd/keyhandler/cli"
	"github.com/effective-security/keyhandler/internal/version"
	"github.com/effective-security/x/ctl"
)

type app struct {
	cli.Cli

	Serve       cli.ServeCmd       `cmd:"" help:"run the HTTP service"`
	Hash        cli.HashCmd        `cmd:"" help:"print the argon2id hash of a password"`
	Fingerprint cli.FingerprintCmd `cmd:"" help:"import a public key once and print its fingerprint"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("keyhandler"),
		kong.Description("OpenPGP public key fingerprint service"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
