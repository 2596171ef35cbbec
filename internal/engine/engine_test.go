package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundmark/internal/store"
)

type fakeStore struct {
	tracks []store.Track
}

func (f *fakeStore) InsertTrack(ctx context.Context, externalID, title, artist, thumbnailURL string, fps []store.Fingerprint) (int64, error) {
	return 0, nil
}
func (f *fakeStore) LookupHashes(ctx context.Context, hashes []uint32) ([]store.HashHit, error) {
	return nil, nil
}
func (f *fakeStore) GetTrack(ctx context.Context, trackID int64) (store.Track, error) {
	for _, t := range f.tracks {
		if t.TrackID == trackID {
			return t, nil
		}
	}
	return store.Track{}, store.ErrTrackNotFound
}
func (f *fakeStore) ListTracks(ctx context.Context, offset, limit int) (int, []store.Track, error) {
	return len(f.tracks), f.tracks, nil
}
func (f *fakeStore) Close() error { return nil }

// findExistingByExternalID is reached on the DuplicateExternalId path of
// AddTrack; since the §4.5 Store interface has no by-external-id lookup,
// it falls back to a catalog scan, which this exercises directly.
func TestFindExistingByExternalID(t *testing.T) {
	fs := &fakeStore{tracks: []store.Track{
		{TrackID: 1, ExternalID: "abc", Title: "A"},
		{TrackID: 2, ExternalID: "xyz", Title: "B"},
	}}
	e := New(fs, nil, nil, nil, nil)

	found, err := e.findExistingByExternalID(context.Background(), "xyz")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(2), found.TrackID)
}

func TestFindExistingByExternalIDNotFound(t *testing.T) {
	fs := &fakeStore{}
	e := New(fs, nil, nil, nil, nil)

	found, err := e.findExistingByExternalID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}
