// Package engine wires the DSP pipeline, store, and external collaborators
// into the shared, thread-safe service object of spec §5. Grounded on the
// teacher's processAndSave/handleMatch flow in server/handlers.go (decode
// -> fingerprint -> store, with every exit path cleaning up the uploaded
// temp file), generalized to the full signal -> spectrogram -> peaks ->
// fingerprint -> store/matcher pipeline and a cancellable context at each
// stage boundary.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"soundmark/internal/apperr"
	"soundmark/internal/config"
	"soundmark/internal/downloader"
	"soundmark/internal/fingerprint"
	"soundmark/internal/matcher"
	"soundmark/internal/metadata"
	"soundmark/internal/peaks"
	"soundmark/internal/signal"
	"soundmark/internal/spectrogram"
	"soundmark/internal/store"
	"soundmark/internal/transcoder"
)

// Engine is instantiated once per process and shared across concurrent
// ingest/match requests; it holds no per-request mutable state.
type Engine struct {
	Store      store.Store
	Downloader downloader.Downloader
	Metadata   metadata.Fetcher
	Config     *config.Config
	Logger     *slog.Logger
}

// New builds an Engine from its already-constructed dependencies.
func New(s store.Store, d downloader.Downloader, m metadata.Fetcher, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: s, Downloader: d, Metadata: m, Config: cfg, Logger: logger}
}

// TrackResult is AddTrack's response shape, per spec §6.1.
type TrackResult struct {
	TrackID        int64
	Title          string
	ExternalID     string
	ThumbnailURL   string
	Artist         string
	AlreadyExisted bool
}

// AddTrack ingests a track identified by externalIDOrURL, per spec §6.1.
// A YouTube URL is resolved to its video id first (§6.1's supplemented
// union-type input); a bare id is used as-is.
func (e *Engine) AddTrack(ctx context.Context, externalIDOrURL string) (TrackResult, error) {
	videoID := externalIDOrURL
	if extracted := downloader.ExtractVideoID(externalIDOrURL); extracted != "" {
		videoID = extracted
	}

	localPath, title, err := e.Downloader.Download(ctx, videoID, e.Config.SongDir)
	if err != nil {
		return TrackResult{}, err
	}
	defer os.Remove(localPath)

	info, err := e.Metadata.Fetch(ctx, videoID)
	if err != nil {
		return TrackResult{}, err
	}

	canonicalPath, err := transcoder.ToCanonicalMP3(ctx, localPath)
	if err != nil {
		return TrackResult{}, apperr.New(apperr.KindInternal, "transcoding ingested audio", err)
	}
	defer os.Remove(canonicalPath)

	fps, err := e.fingerprintFile(ctx, canonicalPath)
	if err != nil {
		return TrackResult{}, err
	}
	if len(fps) == 0 {
		e.Logger.Warn("ingesting track with zero fingerprints", "external_id", videoID, "title", title)
	}

	storeFPs := make([]store.Fingerprint, len(fps))
	for i, fp := range fps {
		storeFPs[i] = store.Fingerprint{HashValue: fp.Hash, AnchorTime: int64(fp.AnchorFrame)}
	}

	trackID, err := e.Store.InsertTrack(ctx, videoID, title, info.ChannelTitle, info.HighThumbnailURL, storeFPs)
	if err != nil {
		if err == store.ErrDuplicateExternalID {
			existing, getErr := e.findExistingByExternalID(ctx, videoID)
			if getErr == nil && existing != nil {
				return TrackResult{
					TrackID: existing.TrackID, Title: existing.Title, ExternalID: existing.ExternalID,
					ThumbnailURL: existing.ThumbnailURL, Artist: existing.Artist, AlreadyExisted: true,
				}, nil
			}
			return TrackResult{}, apperr.New(apperr.KindDuplicateExternalID, "track already exists", err)
		}
		return TrackResult{}, apperr.New(apperr.KindStoreUnavailable, "inserting track", err)
	}

	return TrackResult{
		TrackID: trackID, Title: title, ExternalID: videoID,
		ThumbnailURL: info.HighThumbnailURL, Artist: info.ChannelTitle,
	}, nil
}

// findExistingByExternalID is only reached on the rare DuplicateExternalId
// path; the §4.5 Store interface exposes no by-external-id lookup, so this
// falls back to a full catalog scan rather than growing the interface
// beyond what spec.md names.
func (e *Engine) findExistingByExternalID(ctx context.Context, externalID string) (*store.Track, error) {
	_, tracks, err := e.Store.ListTracks(ctx, 0, 1<<30)
	if err != nil {
		return nil, apperr.New(apperr.KindStoreUnavailable, "listing tracks", err)
	}
	for i := range tracks {
		if tracks[i].ExternalID == externalID {
			return &tracks[i], nil
		}
	}
	return nil, nil
}

// MatchCandidate is one ranked result from Match, per spec §6.1.
type MatchCandidate struct {
	TrackID       int64
	Title         string
	ExternalID    string
	ThumbnailURL  string
	Artist        string
	OffsetSeconds float64
	Confidence    float64
}

// Match fingerprints queryAudioPath and ranks it against the catalog, per
// spec §4.6/§6.1. An empty return means no match.
func (e *Engine) Match(ctx context.Context, queryAudioPath string) ([]MatchCandidate, error) {
	canonicalPath, err := transcoder.ToCanonicalMP3(ctx, queryAudioPath)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "transcoding query audio", err)
	}
	defer os.Remove(canonicalPath)

	fps, err := e.fingerprintFile(ctx, canonicalPath)
	if err != nil {
		return nil, err
	}

	frameRate := spectrogram.FrameRate(e.Config.SampleRate)
	candidates, err := matcher.Match(ctx, e.Store, fps, e.Config.ConfidenceThreshold)
	if err != nil {
		return nil, apperr.New(apperr.KindStoreUnavailable, "matching query", err)
	}

	out := make([]MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		track, err := e.Store.GetTrack(ctx, c.TrackID)
		if err != nil {
			continue // track deleted between vote and lookup; skip rather than fail the whole query
		}
		out = append(out, MatchCandidate{
			TrackID: track.TrackID, Title: track.Title, ExternalID: track.ExternalID,
			ThumbnailURL: track.ThumbnailURL, Artist: track.Artist,
			OffsetSeconds: float64(c.DeltaFrame) / frameRate,
			Confidence:    c.Confidence,
		})
	}
	return out, nil
}

// fingerprintFile runs the DSP pipeline over a canonical audio file, with a
// cancellation check at each stage boundary per spec §5.
func (e *Engine) fingerprintFile(ctx context.Context, path string) ([]fingerprint.Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	samples, err := signal.Condition(path, e.Config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("conditioning signal: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec := spectrogram.Build(samples)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pks := peaks.Extract(spec)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fingerprint.Generate(pks), nil
}
