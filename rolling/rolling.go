// Package rolling implements the windowed rolling-hash boundary detector
// used by the chunker to find content-defined cut points.
package rolling

// Window is the number of trailing bytes the rolling fingerprint covers.
const Window = 64

// DefaultBoundaryBits is the number of low fingerprint bits that must be
// zero for a boundary to fire. B = 13 targets an average chunk size of
// roughly 8 KiB (2^13 bytes).
const DefaultBoundaryBits = 13

// Hasher maintains a 32-bit running fingerprint over the last Window
// bytes fed to it, updating in O(1) per byte from (old fingerprint,
// leaving byte, entering byte) — a buzhash-style cyclic polynomial,
// structurally the table-driven rolling update the teacher's
// fastcdc.Chunker.NextBoundary performs, but over a genuine bounded
// sliding window rather than a running sum since stream start.
type Hasher struct {
	table  *Table
	window [Window]byte
	pos    int  // next write position in the ring buffer
	full   bool // whether the window has been filled at least once
	fp     uint32
	mask   uint32 // low boundaryBits bits set; fingerprint&mask==0 is a boundary
}

// New creates a Hasher using the default gear table and boundary width.
func New() *Hasher {
	return NewWithParams(nil, DefaultBoundaryBits)
}

// NewWithParams creates a Hasher with an explicit gear table (nil selects
// the package default) and boundary bit width.
func NewWithParams(table *Table, boundaryBits uint) *Hasher {
	if table == nil {
		table = DefaultTable()
	}
	var mask uint32
	if boundaryBits > 0 {
		mask = (uint32(1) << boundaryBits) - 1
	}
	return &Hasher{table: table, mask: mask}
}

// Reset clears the window and fingerprint, starting a fresh rolling
// computation. Per the chunker's design, the window does not carry
// across chunk boundaries — each chunk's cuts are a pure function of its
// own bytes.
func (h *Hasher) Reset() {
	h.pos = 0
	h.full = false
	h.fp = 0
	h.window = [Window]byte{}
}

// FeedByte appends b to the sliding window and returns whether the
// updated fingerprint satisfies the boundary predicate (its low B bits
// are all zero).
func (h *Hasher) FeedByte(b byte) bool {
	wasFull := h.full
	var leaving byte
	if wasFull {
		leaving = h.window[h.pos]
	}
	h.window[h.pos] = b
	h.pos++
	if h.pos == Window {
		h.pos = 0
		h.full = true
	}

	h.fp = rotl32(h.fp, 1) ^ h.table[b]
	if wasFull {
		// Window%32 == 0 for Window==64, so the leaving byte's
		// contribution rotates back to its original alignment.
		h.fp ^= rotl32(h.table[leaving], Window%32)
	}

	return h.mask != 0 && h.fp&h.mask == 0
}

// Fingerprint returns the current 32-bit rolling fingerprint.
func (h *Hasher) Fingerprint() uint32 {
	return h.fp
}

func rotl32(x uint32, r uint) uint32 {
	r &= 31
	if r == 0 {
		return x
	}
	return (x << r) | (x >> (32 - r))
}
