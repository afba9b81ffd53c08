// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command jellyplay resolves Jellyfin items into playable streams and drives
// a local media engine for them.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/jellyplay/internal/version"
	"github.com/joho/godotenv"
)

const usage = `Usage: jellyplay <command> [flags]

Commands:
  resolve   resolve item ids into stream URLs (no playback)
  play      play one item with mpv and expose the control API
  serve     run the control API and wait for open requests
  version   print version information

Run "jellyplay <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "resolve":
		return runResolveCLI(args[1:], stdout, stderr)
	case "play":
		return runPlayCLI(args[1:], stderr)
	case "serve":
		return runServeCLI(args[1:], stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}
