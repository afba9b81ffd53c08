// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/jellyplay/internal/core/urlutil"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/playback/probe"
	"golang.org/x/sync/errgroup"
)

// resolveResult is one output line of the resolve command.
type resolveResult struct {
	ItemID        string        `json:"itemId"`
	URL           string        `json:"url,omitempty"`
	Tier          string        `json:"tier,omitempty"`
	PlayMethod    string        `json:"playMethod,omitempty"`
	SessionID     string        `json:"sessionId,omitempty"`
	MediaSourceID string        `json:"mediaSourceId,omitempty"`
	Error         string        `json:"error,omitempty"`
	Probe         *probe.Result `json:"probe,omitempty"`
	ProbeError    string        `json:"probeError,omitempty"`
}

func runResolveCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	doProbe := fs.Bool("probe", false, "fetch each resolved URL and inspect the response")
	concurrency := fs.Int("concurrency", 4, "items resolved in parallel")
	showToken := fs.Bool("show-token", false, "print URLs with the access token instead of redacting it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	items := fs.Args()
	if len(items) == 0 {
		fmt.Fprintln(stderr, "resolve: at least one item id is required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, *configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "resolve: %v\n", err)
		return 1
	}
	defer rt.close()

	results := resolveAll(ctx, rt, items, *concurrency, *doProbe)

	enc := json.NewEncoder(stdout)
	code := 0
	for _, res := range results {
		if res.Error != "" {
			code = 1
		}
		if !*showToken {
			res.URL = urlutil.SanitizeURL(res.URL)
		}
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "resolve: write output: %v\n", err)
			return 1
		}
	}
	return code
}

// resolveAll resolves items with at most limit in flight. A failing item does
// not cancel the others; results keep the input order.
func resolveAll(ctx context.Context, rt *runtime, items []string, limit int, doProbe bool) []resolveResult {
	if limit <= 0 {
		limit = 1
	}
	resolver := rt.resolver()
	results := make([]resolveResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, itemID := range items {
		g.Go(func() error {
			res := resolveResult{ItemID: itemID}
			target, err := resolver.Resolve(gctx, itemID)
			if err != nil {
				res.Error = playback.UserMessage(err)
				results[i] = res
				return nil
			}
			res.URL = target.String()
			res.Tier = target.Tier.String()
			res.PlayMethod = string(target.PlayMethod)
			res.SessionID = target.SessionID
			res.MediaSourceID = target.MediaSourceID

			if doProbe {
				pr, err := probe.Probe(gctx, rt.httpClient, target)
				if err != nil {
					res.ProbeError = err.Error()
				} else {
					res.Probe = &pr
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
