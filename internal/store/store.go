// Package store persists tracks and fingerprints and answers the
// hash-lookup queries the matcher needs, per spec §4.5. Grounded on the
// db.Client interface shape of Prayush09-MusicRecognition's db/client.go and
// db/postgres.go, with two implementations — sqlitestore and mongostore —
// selected from the teacher's own dependency pair (mattn/go-sqlite3,
// go.mongodb.org/mongo-driver) rather than dropping either.
package store

import (
	"context"
	"errors"
)

// Track is one catalog entry, per spec §3.
type Track struct {
	TrackID      int64
	ExternalID   string
	Title        string
	Artist       string
	ThumbnailURL string
}

// Fingerprint is one (hash, anchor_time) datum owned by a track.
type Fingerprint struct {
	FingerprintID int64
	AnchorTime    int64
	HashValue     uint32
	TrackID       int64
}

// HashHit is one stored row matching a queried hash, per §4.5's
// lookup_hashes contract.
type HashHit struct {
	HashValue  uint32
	AnchorTime int64
	TrackID    int64
}

// ErrDuplicateExternalID is returned when insert_track is called with an
// external_id already present in the store.
var ErrDuplicateExternalID = errors.New("external_id already exists")

// ErrTrackNotFound is returned by GetTrack when no track has the given id.
var ErrTrackNotFound = errors.New("track not found")

// Store is the persistence boundary of spec §4.5.
type Store interface {
	// InsertTrack persists a new track and its fingerprints atomically,
	// returning the assigned track id. Fails with ErrDuplicateExternalID,
	// leaving the store unchanged, if externalID is already present.
	InsertTrack(ctx context.Context, externalID, title, artist, thumbnailURL string, fingerprints []Fingerprint) (int64, error)

	// LookupHashes returns every stored row whose hash_value is in hashes.
	// Duplicates in hashes collapse; row order is unspecified.
	LookupHashes(ctx context.Context, hashes []uint32) ([]HashHit, error)

	// GetTrack returns the track with the given id, or ErrTrackNotFound.
	GetTrack(ctx context.Context, trackID int64) (Track, error)

	// ListTracks returns a page of tracks ordered by track_id, plus the
	// total catalog count.
	ListTracks(ctx context.Context, offset, limit int) (total int, tracks []Track, err error)

	Close() error
}
