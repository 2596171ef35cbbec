// Command soundmark is the CLI entry point, adapted from the teacher's
// main.go + cmdHandlers.go flag-based subcommand dispatch (find/save/
// serve/erase) onto this spec's operations: add (ingest a catalog track),
// match (identify a snippet), list (browse the catalog), serve (run the
// HTTP API of internal/api).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"soundmark/internal/api"
	"soundmark/internal/cli"
	"soundmark/internal/config"
	"soundmark/internal/downloader"
	"soundmark/internal/engine"
	"soundmark/internal/metadata"
	"soundmark/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		cli.Error("config error: %v", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	s, err := store.Open(ctx, cfg.DBURL)
	if err != nil {
		cli.Error("failed to open store: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	dl := downloader.NewRapidAPIDownloader(cfg.YTToMP3URL, cfg.QueryParam, cfg.RapidAPIKey, cfg.RapidAPIHost)
	md, err := metadata.NewYouTubeFetcher(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		cli.Error("failed to build metadata fetcher: %v", err)
		os.Exit(1)
	}

	eng := engine.New(s, dl, md, cfg, logger)

	switch os.Args[1] {
	case "add":
		if len(os.Args) < 3 {
			fmt.Println("usage: soundmark add <external_id_or_url>")
			os.Exit(1)
		}
		runAdd(ctx, eng, os.Args[2])

	case "match":
		if len(os.Args) < 3 {
			fmt.Println("usage: soundmark match <path_to_audio_file>")
			os.Exit(1)
		}
		runMatch(ctx, eng, os.Args[2])

	case "list":
		listCmd := flag.NewFlagSet("list", flag.ExitOnError)
		offset := listCmd.Int("offset", 0, "pagination offset")
		limit := listCmd.Int("limit", 20, "page size (1-100)")
		listCmd.Parse(os.Args[2:])
		if *offset < 0 || *limit < 1 || *limit > 100 {
			cli.Error("offset must be >= 0 and limit between 1 and 100")
			os.Exit(1)
		}
		runList(ctx, eng, *offset, *limit)

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := serveCmd.String("addr", ":8080", "listen address")
		serveCmd.Parse(os.Args[2:])
		runServe(eng, logger, *addr)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: soundmark <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  add   <external_id_or_url>         ingest a catalog track")
	fmt.Println("  match <audio_file>                 identify a snippet against the catalog")
	fmt.Println("  list  [-offset N] [-limit N]        browse the catalog")
	fmt.Println("  serve [-addr :8080]                run the HTTP API")
}

func runAdd(ctx context.Context, eng *engine.Engine, input string) {
	start := time.Now()
	result, err := eng.AddTrack(ctx, input)
	if err != nil {
		cli.Error("add failed: %v", err)
		os.Exit(1)
	}
	if result.AlreadyExisted {
		cli.Info("'%s' by '%s' already exists (track_id=%d)", result.Title, result.Artist, result.TrackID)
		return
	}
	cli.Success("indexed '%s' by '%s' (track_id=%d) in %s", result.Title, result.Artist, result.TrackID, time.Since(start))
}

func runMatch(ctx context.Context, eng *engine.Engine, path string) {
	start := time.Now()
	candidates, err := eng.Match(ctx, path)
	if err != nil {
		cli.Error("match failed: %v", err)
		os.Exit(1)
	}
	if len(candidates) == 0 {
		cli.Info("no match found (search took %s)", time.Since(start))
		return
	}

	cli.Info("matches:")
	for _, c := range candidates {
		fmt.Printf("\t- %s by %s, offset=%.2fs, confidence=%.2f\n", c.Title, c.Artist, c.OffsetSeconds, c.Confidence)
	}
	top := candidates[0]
	cli.Success("final prediction: %s by %s (search took %s)", top.Title, top.Artist, time.Since(start))
}

func runList(ctx context.Context, eng *engine.Engine, offset, limit int) {
	total, tracks, err := eng.Store.ListTracks(ctx, offset, limit)
	if err != nil {
		cli.Error("list failed: %v", err)
		os.Exit(1)
	}
	cli.Info("%d of %d tracks:", len(tracks), total)
	for _, t := range tracks {
		fmt.Printf("\t- [%d] %s by %s (%s)\n", t.TrackID, t.Title, t.Artist, t.ExternalID)
	}
}

func runServe(eng *engine.Engine, logger *slog.Logger, addr string) {
	srv := api.NewServer(eng, logger, eng.Config.SongDir)
	logger.Info("starting server", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		cli.Error("server error: %v", err)
		os.Exit(1)
	}
}
