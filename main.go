package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"portsniffer/args"
	"portsniffer/scan"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `Usage: %[1]s [-j <threads>] <ip-address>
       -j to select how many threads you want (default 4)
       -h or --help to show this help message

Environment:
       SNIFFER_TIMEOUT    per-connect timeout, e.g. 500ms (default: OS timeout)
       SNIFFER_MODE       tcp (default) or syn
       SNIFFER_IFACE      interface for syn mode
       SNIFFER_LOG_LEVEL  debug, info, warn, error (default info)
`

func main() {
	setupLogger(os.Getenv("SNIFFER_LOG_LEVEL"))

	program := "port-sniffer"
	if len(os.Args) > 0 {
		program = os.Args[0]
	}

	input, err := args.Resolve(os.Args)
	if err == nil {
		input, err = args.ApplyEnv(input, os.Getenv)
	}
	if errors.Is(err, args.ErrHelpRequested) {
		fmt.Printf(usage, program)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s problem parsing arguments: %v\n", program, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open, err := scan.ScanInit(ctx, input, func(uint16) {
		fmt.Fprint(os.Stderr, ".")
	})
	if err != nil {
		log.Error().Err(err).Str("mode", input.Mode.String()).Msg("failed to start scan")
		stop()
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr)

	if err := scan.PrintResults(os.Stdout, open); err != nil {
		log.Error().Err(err).Msg("failed to write results")
		stop()
		os.Exit(1)
	}
}

func setupLogger(raw_level string) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw_level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
