package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundmark/internal/fingerprint"
	"soundmark/internal/store"
)

type fakeStore struct {
	rows []store.HashHit
}

func (f *fakeStore) LookupHashes(ctx context.Context, hashes []uint32) ([]store.HashHit, error) {
	want := make(map[uint32]struct{}, len(hashes))
	for _, h := range hashes {
		want[h] = struct{}{}
	}
	var out []store.HashHit
	for _, r := range f.rows {
		if _, ok := want[r.HashValue]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Offset-voting identity, spec §8 invariant 5: a track queried back with
// its own fingerprint list is the top candidate at delta 0. Uses enough
// distinct hashes (>10) that each one-off hash survives common-hash
// suppression (which would otherwise treat every unique hash in a tiny
// row set as "common").
func TestMatchIdentityHasZeroOffset(t *testing.T) {
	fps := make([]fingerprint.Fingerprint, 0, 12)
	for i := 0; i < 12; i++ {
		fps = append(fps, fingerprint.Fingerprint{Hash: uint32(i + 1), AnchorFrame: i * 3})
	}
	rows := make([]store.HashHit, len(fps))
	for i, fp := range fps {
		rows[i] = store.HashHit{HashValue: fp.Hash, AnchorTime: int64(fp.AnchorFrame), TrackID: 1}
	}

	s := &fakeStore{rows: rows}
	candidates, err := Match(context.Background(), s, fps, 0)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	top := candidates[0]
	assert.Equal(t, int64(1), top.TrackID)
	assert.Equal(t, int64(0), top.DeltaFrame)
}

// Offset match: a query drawn from the middle of the track votes for the
// track's own anchor-frame offset. Padded past 10 distinct hashes so none
// of them individually trips common-hash suppression.
func TestMatchFindsConstantOffset(t *testing.T) {
	rows := []store.HashHit{
		{HashValue: 10, AnchorTime: 100, TrackID: 7},
		{HashValue: 11, AnchorTime: 105, TrackID: 7},
		{HashValue: 12, AnchorTime: 112, TrackID: 7},
	}
	query := []fingerprint.Fingerprint{
		{Hash: 10, AnchorFrame: 0},
		{Hash: 11, AnchorFrame: 5},
		{Hash: 12, AnchorFrame: 12},
	}
	for i := 0; i < 9; i++ {
		h := uint32(200 + i)
		rows = append(rows, store.HashHit{HashValue: h, AnchorTime: int64(900 + i), TrackID: 9})
		query = append(query, fingerprint.Fingerprint{Hash: h, AnchorFrame: 0})
	}

	s := &fakeStore{rows: rows}
	candidates, err := Match(context.Background(), s, query, 0)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, int64(7), candidates[0].TrackID)
	assert.Equal(t, int64(100), candidates[0].DeltaFrame)
}

// Negative delta rows (catalog anchor earlier than the query anchor) never
// contribute a vote, even when the row itself survives common-hash
// suppression.
func TestMatchDropsNegativeDelta(t *testing.T) {
	rows := []store.HashHit{{HashValue: 1, AnchorTime: 0, TrackID: 1}}
	query := []fingerprint.Fingerprint{{Hash: 1, AnchorFrame: 50}}
	for i := 0; i < 11; i++ {
		h := uint32(200 + i)
		rows = append(rows, store.HashHit{HashValue: h, AnchorTime: int64(500 + i), TrackID: 2})
		query = append(query, fingerprint.Fingerprint{Hash: h, AnchorFrame: 0})
	}

	s := &fakeStore{rows: rows}
	candidates, err := Match(context.Background(), s, query, 0)
	require.NoError(t, err)
	require.NotEmpty(t, candidates, "track 2's positive-delta rows should still produce a candidate")
	for _, c := range candidates {
		assert.NotEqual(t, int64(1), c.TrackID, "track 1's only row has a negative delta and must not vote")
	}
}

// Common-hash suppression, spec §8 scenario 4: a hash occurring in >=10%
// of rows is dropped entirely, along with its vote.
func TestMatchSuppressesCommonHash(t *testing.T) {
	var rows []store.HashHit
	// hash 999 appears in 4 of 10 rows (40%), well above the 10% cutoff.
	for i := 0; i < 4; i++ {
		rows = append(rows, store.HashHit{HashValue: 999, AnchorTime: int64(i), TrackID: 1})
	}
	for i := 0; i < 6; i++ {
		rows = append(rows, store.HashHit{HashValue: uint32(1000 + i), AnchorTime: int64(i), TrackID: 2})
	}

	query := []fingerprint.Fingerprint{{Hash: 999, AnchorFrame: 0}}
	s := &fakeStore{rows: rows}
	candidates, err := Match(context.Background(), s, query, 0)
	require.NoError(t, err)
	assert.Empty(t, candidates, "rows carrying the common hash must be suppressed, leaving no vote")
}

func TestMatchEmptyQuery(t *testing.T) {
	s := &fakeStore{}
	candidates, err := Match(context.Background(), s, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

// Threshold monotonicity, spec §8 invariant 7: raising the confidence
// threshold never grows the candidate set. Uses enough distinct hashes
// that common-hash suppression (each hash occurs once, well under 10% of
// a 20-row total) doesn't wipe out the vote entirely.
func TestMatchThresholdMonotonicity(t *testing.T) {
	var rows []store.HashHit
	var query []fingerprint.Fingerprint
	for i := 0; i < 12; i++ {
		h := uint32(i + 1)
		rows = append(rows, store.HashHit{HashValue: h, AnchorTime: 0, TrackID: 1})
		query = append(query, fingerprint.Fingerprint{Hash: h, AnchorFrame: 0})
	}
	for i := 0; i < 8; i++ {
		h := uint32(100 + i)
		rows = append(rows, store.HashHit{HashValue: h, AnchorTime: 100, TrackID: 2})
		query = append(query, fingerprint.Fingerprint{Hash: h, AnchorFrame: 0})
	}
	s := &fakeStore{rows: rows}

	low, err := Match(context.Background(), s, query, 0)
	require.NoError(t, err)
	require.Len(t, low, 2)

	high, err := Match(context.Background(), s, query, 0.59)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(high), len(low))
	assert.Len(t, high, 1)
}

// Tie-break policy: equal vote counts break by smaller delta. Padded with
// enough distinct low-impact hashes that common-hash suppression (each
// hash here occurs once, under 10% of the total) doesn't erase the tie.
func TestMatchTieBreakBySmallerDelta(t *testing.T) {
	rows := []store.HashHit{
		{HashValue: 1, AnchorTime: 10, TrackID: 2},
		{HashValue: 2, AnchorTime: 10, TrackID: 2},
		{HashValue: 3, AnchorTime: 5, TrackID: 1},
		{HashValue: 4, AnchorTime: 5, TrackID: 1},
	}
	query := []fingerprint.Fingerprint{
		{Hash: 1, AnchorFrame: 0}, {Hash: 2, AnchorFrame: 0},
		{Hash: 3, AnchorFrame: 0}, {Hash: 4, AnchorFrame: 0},
	}
	for i := 0; i < 8; i++ {
		h := uint32(100 + i)
		rows = append(rows, store.HashHit{HashValue: h, AnchorTime: int64(1000 + i), TrackID: 3})
		query = append(query, fingerprint.Fingerprint{Hash: h, AnchorFrame: 0})
	}

	s := &fakeStore{rows: rows}
	candidates, err := Match(context.Background(), s, query, 0)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, int64(5), candidates[0].DeltaFrame)
	assert.Equal(t, int64(1), candidates[0].TrackID)
}
