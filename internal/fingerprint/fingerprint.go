// Package fingerprint packs anchor/target peak pairs into the 32-bit hash
// of spec §4.4. The fan-out pairing follows the target-zone loop shape of
// the teacher's shazam/fingerprint.go (Fingerprint over peaks, bounded
// forward window) with the bit layout, window bounds, and sort order spec.md
// specifies instead of the teacher's own address encoding.
package fingerprint

import (
	"sort"

	"soundmark/internal/peaks"
)

const (
	// Fan is the number of forward peaks paired with each anchor.
	Fan = 9
	// MinDT and MaxDT bound the accepted time delta, in frames.
	MinDT = 1
	MaxDT = 30

	f1Mask = 0x3FF // 10 bits: f1 in [0, 1023]
	f2Mask = 0x3FF // 10 bits: f2 in [0, 1023]
	dtMask = 0xFF  // 8 bits: dt in [0, 255]
)

// Hash is the 32-bit packed (f1, f2, dt) address.
type Hash = uint32

// Fingerprint is one (hash, anchor-frame) datum.
type Fingerprint struct {
	Hash        Hash
	AnchorFrame int
}

// Pack encodes (f1, f2, dt) as hash = (f1<<18) | (f2<<8) | (dt & 0xFF).
func Pack(f1, f2, dt int) Hash {
	return (Hash(f1&f1Mask) << 18) | (Hash(f2&f2Mask) << 8) | (Hash(dt) & dtMask)
}

// Unpack is the exact inverse of Pack.
func Unpack(h Hash) (f1, f2, dt int) {
	f1 = int((h >> 18) & f1Mask)
	f2 = int((h >> 8) & f2Mask)
	dt = int(h & dtMask)
	return
}

// Generate sorts peaks ascending by (frame, bin), then pairs each anchor
// with the next Fan peaks in that order, keeping only those whose delta-t
// falls in [MinDT, MaxDT], and returns fingerprints sorted by anchor frame.
// The forward window is bounded by index, not by successful-pair count: a
// peak beyond i+Fan is never considered for anchor i, even if every one of
// the Fan candidates in between fails the delta-t test. Given identical
// input in identical order, the output is bit-identical (spec §4.4
// determinism).
func Generate(pks []peaks.Peak) []Fingerprint {
	sorted := make([]peaks.Peak, len(pks))
	copy(sorted, pks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Frame != sorted[j].Frame {
			return sorted[i].Frame < sorted[j].Frame
		}
		return sorted[i].Bin < sorted[j].Bin
	})

	out := make([]Fingerprint, 0, len(sorted)*Fan)
	for i, anchor := range sorted {
		for j := i + 1; j < len(sorted) && j <= i+Fan; j++ {
			target := sorted[j]
			dt := target.Frame - anchor.Frame
			if dt < MinDT || dt > MaxDT {
				continue
			}
			out = append(out, Fingerprint{
				Hash:        Pack(anchor.Bin, target.Bin, dt),
				AnchorFrame: anchor.Frame,
			})
		}
	}

	// out is already non-decreasing in AnchorFrame: the outer loop visits
	// sorted anchors in frame order and appends each one's pairs in full
	// before moving to the next.
	return out
}
