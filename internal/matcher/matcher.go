// Package matcher implements the offset-histogram voting matcher of spec
// §4.6: common-hash suppression, per-track mode voting, and confidence
// ranking. Grounded on the vote-accumulation shape of
// DanielCarmel-media-luna's matching pass (map-of-counters keyed by
// candidate then offset) and Prayush09-MusicRecognition's core/shazoom.go
// top-candidate selection, generalized to the suppression and tie-break
// rules spec.md specifies.
package matcher

import (
	"context"
	"sort"

	"soundmark/internal/fingerprint"
	"soundmark/internal/store"
)

// SuppressionRatio is the fraction of all looked-up rows at or above which
// a hash is considered too common to carry signal.
const SuppressionRatio = 0.10

// MaxCandidates bounds how many ranked candidates Match returns.
const MaxCandidates = 3

// Candidate is one ranked match result. DeltaFrame is still in frames; the
// caller converts it to seconds.
type Candidate struct {
	TrackID    int64
	DeltaFrame int64
	Count      int
	Confidence float64
}

// Store is the subset of store.Store the matcher depends on.
type Store interface {
	LookupHashes(ctx context.Context, hashes []uint32) ([]store.HashHit, error)
}

// Match ranks catalog tracks against a query's fingerprints, per spec §4.6.
// confidenceThreshold filters the final candidate list; pass 0 for the
// spec's default of no filtering.
func Match(ctx context.Context, s Store, query []fingerprint.Fingerprint, confidenceThreshold float64) ([]Candidate, error) {
	if len(query) == 0 {
		return nil, nil
	}

	qTimes := make(map[fingerprint.Hash][]int64, len(query))
	hashSet := make(map[fingerprint.Hash]struct{}, len(query))
	for _, fp := range query {
		qTimes[fp.Hash] = append(qTimes[fp.Hash], int64(fp.AnchorFrame))
		hashSet[fp.Hash] = struct{}{}
	}
	hashes := make([]uint32, 0, len(hashSet))
	for h := range hashSet {
		hashes = append(hashes, h)
	}

	rows, err := s.LookupHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rows = suppressCommonHashes(rows)
	if len(rows) == 0 {
		return nil, nil
	}

	votes := make(map[int64]map[int64]int) // track_id -> delta -> count
	for _, row := range rows {
		for _, tQ := range qTimes[row.HashValue] {
			delta := row.AnchorTime - tQ
			if delta < 0 {
				continue
			}
			trackVotes, ok := votes[row.TrackID]
			if !ok {
				trackVotes = make(map[int64]int)
				votes[row.TrackID] = trackVotes
			}
			trackVotes[delta]++
		}
	}

	candidates := make([]Candidate, 0, len(votes))
	surviving := float64(len(rows))
	for trackID, deltaCounts := range votes {
		bestDelta, bestCount := modeOf(deltaCounts)
		if bestCount == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			TrackID:    trackID,
			DeltaFrame: bestDelta,
			Count:      bestCount,
			Confidence: float64(bestCount) / max1(surviving),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.DeltaFrame != b.DeltaFrame {
			return a.DeltaFrame < b.DeltaFrame
		}
		return a.TrackID < b.TrackID
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	out := candidates[:0]
	for _, c := range candidates {
		if c.Confidence < confidenceThreshold {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// suppressCommonHashes drops every row whose hash value occurs at or above
// 10% of the total row count, per spec §4.6 step 3.
func suppressCommonHashes(rows []store.HashHit) []store.HashHit {
	counts := make(map[uint32]int, len(rows))
	for _, r := range rows {
		counts[r.HashValue]++
	}
	threshold := SuppressionRatio * float64(len(rows))

	out := make([]store.HashHit, 0, len(rows))
	for _, r := range rows {
		if float64(counts[r.HashValue]) >= threshold {
			continue
		}
		out = append(out, r)
	}
	return out
}

// modeOf returns the delta with the highest vote count, breaking ties by
// smaller delta (the tie-break policy's second clause; the third clause,
// smaller track_id, is applied by the caller's track-level sort since
// modeOf only sees one track's deltas).
func modeOf(deltaCounts map[int64]int) (delta int64, count int) {
	first := true
	for d, c := range deltaCounts {
		if first || c > count || (c == count && d < delta) {
			delta, count = d, c
			first = false
		}
	}
	return
}

func max1(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}
