package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"internwatch-engine/internal/cmd"
)

var version = "dev"

func main() {
	cli := cmd.NewCLI()
	parser, err := kong.New(cli,
		kong.Name("internwatch-engine"),
		kong.Description("Tracks internship openings: scrapes listing tables, searches for Canadian postings, serves the results."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := cmd.NewLogger(os.Stderr, cli.LogLevel, cli.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, err := cmd.NewContext(ctx, cli, os.Stdout, os.Stderr, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup")
		os.Exit(1)
	}

	if err := kctx.Run(runCtx); err != nil {
		logger.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
