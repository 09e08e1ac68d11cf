package parallel

import (
	"math/bits"
	"sync/atomic"
)

// Progress tracks which tiles have been painted using an atomic bitmap.
//
// The coordinator marks a tile after its last pixel is handed to the
// painter; any goroutine may read the bitmap while rendering is in flight.
// The bitmap uses one bit per tile, packed into uint64 words (64 tiles per
// word). All methods are safe for concurrent use without external
// synchronization.
type Progress struct {
	// words is the atomic bitmap where each bit represents a tile's state.
	// Bit index = ty * tilesX + tx
	words []atomic.Uint64

	// painted mirrors the number of set bits so Count is O(1).
	painted atomic.Int64

	tilesX int
	tilesY int
}

// NewProgress creates a progress tracker for a tilesX by tilesY grid with
// no tile painted. Returns nil if dimensions are invalid.
func NewProgress(tilesX, tilesY int) *Progress {
	if tilesX <= 0 || tilesY <= 0 {
		return nil
	}

	totalTiles := tilesX * tilesY
	numWords := (totalTiles + 63) / 64

	return &Progress{
		words:  make([]atomic.Uint64, numWords),
		tilesX: tilesX,
		tilesY: tilesY,
	}
}

// Mark records tile (tx, ty) as painted. Marking a tile twice counts once.
// Does nothing if coordinates are out of bounds.
func (p *Progress) Mark(tx, ty int) {
	if tx < 0 || tx >= p.tilesX || ty < 0 || ty >= p.tilesY {
		return
	}
	idx := ty*p.tilesX + tx
	bit := uint64(1) << (idx & 63)
	if old := p.words[idx/64].Or(bit); old&bit == 0 {
		p.painted.Add(1)
	}
}

// IsPainted reports whether tile (tx, ty) has been painted.
// Returns false for out-of-bounds coordinates.
func (p *Progress) IsPainted(tx, ty int) bool {
	if tx < 0 || tx >= p.tilesX || ty < 0 || ty >= p.tilesY {
		return false
	}
	idx := ty*p.tilesX + tx
	return p.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// Count returns the number of painted tiles.
func (p *Progress) Count() int {
	return int(p.painted.Load())
}

// Total returns the number of tiles tracked.
func (p *Progress) Total() int {
	return p.tilesX * p.tilesY
}

// Fraction returns Count()/Total() in [0, 1].
func (p *Progress) Fraction() float64 {
	return float64(p.Count()) / float64(p.Total())
}

// Done reports whether every tile has been painted.
func (p *Progress) Done() bool {
	return p.Count() == p.Total()
}

// ForEachPainted calls fn for each painted tile.
// Tiles are visited in row-major order (left-to-right, top-to-bottom).
func (p *Progress) ForEachPainted(fn func(tx, ty int)) {
	if fn == nil {
		return
	}

	totalTiles := p.Total()

	for wordIdx := range p.words {
		word := p.words[wordIdx].Load()
		for word != 0 {
			bitIdx := bits.TrailingZeros64(word)

			tileIdx := wordIdx*64 + bitIdx
			if tileIdx >= totalTiles {
				break
			}

			fn(tileIdx%p.tilesX, tileIdx/p.tilesX)

			word &^= 1 << bitIdx
		}
	}
}

// Clear marks every tile as not painted.
func (p *Progress) Clear() {
	for i := range p.words {
		p.words[i].Store(0)
	}
	p.painted.Store(0)
}
