package parallel

// TileGrid partitions a Frame into tiles.
//
// Tiles are stored in a flat slice, accessed via index calculation:
// index = row * tilesX + col. Every pixel of the frame belongs to exactly
// one tile.
//
// Thread safety: TileGrid is immutable after construction.
type TileGrid struct {
	// tiles is a flat slice of all tiles (row-major order).
	tiles []*Tile

	// colEdges and rowEdges hold tilesX+1 and tilesY+1 pixel boundaries.
	colEdges []int
	rowEdges []int

	frame Frame
}

// NewTileGrid divides the frame into a tilesX by tilesY grid of near-equal
// tiles. Tile edges fall on floor(i*width/tilesX), so tile sizes differ by at
// most one pixel. Grid dimensions are clamped to [1, width] and [1, height]
// so no tile is empty.
//
// Returns an empty grid if the frame has no pixels.
func NewTileGrid(f Frame, tilesX, tilesY int) *TileGrid {
	if f.Width <= 0 || f.Height <= 0 {
		return &TileGrid{frame: f}
	}

	tilesX = min(max(tilesX, 1), f.Width)
	tilesY = min(max(tilesY, 1), f.Height)

	colEdges := make([]int, tilesX+1)
	for i := range colEdges {
		colEdges[i] = i * f.Width / tilesX
	}
	rowEdges := make([]int, tilesY+1)
	for i := range rowEdges {
		rowEdges[i] = i * f.Height / tilesY
	}

	return newTileGrid(f, colEdges, rowEdges)
}

// NewTileGridSized divides the frame into tiles of tileW by tileH pixels.
// Edge tiles may be smaller when the frame is not evenly divisible.
// A non-positive size selects TileWidth or TileHeight.
func NewTileGridSized(f Frame, tileW, tileH int) *TileGrid {
	if f.Width <= 0 || f.Height <= 0 {
		return &TileGrid{frame: f}
	}
	if tileW <= 0 {
		tileW = TileWidth
	}
	if tileH <= 0 {
		tileH = TileHeight
	}

	return newTileGrid(f, sizedEdges(f.Width, tileW), sizedEdges(f.Height, tileH))
}

// sizedEdges returns the boundaries of fixed-size spans covering n pixels.
func sizedEdges(n, size int) []int {
	count := (n + size - 1) / size
	edges := make([]int, count+1)
	for i := range count {
		edges[i] = i * size
	}
	edges[count] = n
	return edges
}

// newTileGrid allocates one tile per cell of the edge lattice.
func newTileGrid(f Frame, colEdges, rowEdges []int) *TileGrid {
	tilesX := len(colEdges) - 1
	tilesY := len(rowEdges) - 1
	dx, dy := f.Step()

	g := &TileGrid{
		tiles:    make([]*Tile, tilesX*tilesY),
		colEdges: colEdges,
		rowEdges: rowEdges,
		frame:    f,
	}

	for ty := range tilesY {
		for tx := range tilesX {
			idx := ty*tilesX + tx
			// Heap-allocated so each tile outlives this loop and can be
			// handed to an independently scheduled worker.
			g.tiles[idx] = &Tile{
				Index:   idx,
				Col:     tx,
				Row:     ty,
				XMin:    f.XMin,
				YMin:    f.YMin,
				Dx:      dx,
				Dy:      dy,
				MaxIter: f.MaxIter,
				WPMin:   colEdges[tx],
				WPMax:   colEdges[tx+1],
				HPMin:   rowEdges[ty],
				HPMax:   rowEdges[ty+1],
			}
		}
	}

	return g
}

// TileAt returns the tile at grid coordinates (tx, ty).
// Returns nil if coordinates are out of bounds.
func (g *TileGrid) TileAt(tx, ty int) *Tile {
	if tx < 0 || tx >= g.TilesX() || ty < 0 || ty >= g.TilesY() {
		return nil
	}
	return g.tiles[ty*g.TilesX()+tx]
}

// TileAtPixel returns the tile containing image-space pixel (px, py).
// Returns nil if coordinates are out of bounds.
func (g *TileGrid) TileAtPixel(px, py int) *Tile {
	if px < 0 || px >= g.frame.Width || py < 0 || py >= g.frame.Height {
		return nil
	}
	return g.TileAt(span(g.colEdges, px), span(g.rowEdges, py))
}

// span returns the index i with edges[i] <= p < edges[i+1].
func span(edges []int, p int) int {
	lo, hi := 0, len(edges)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if edges[mid] <= p {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// TileCount returns the total number of tiles in the grid.
func (g *TileGrid) TileCount() int {
	return len(g.tiles)
}

// TilesX returns the number of tiles horizontally.
func (g *TileGrid) TilesX() int {
	if len(g.colEdges) == 0 {
		return 0
	}
	return len(g.colEdges) - 1
}

// TilesY returns the number of tiles vertically.
func (g *TileGrid) TilesY() int {
	if len(g.rowEdges) == 0 {
		return 0
	}
	return len(g.rowEdges) - 1
}

// Frame returns the frame the grid partitions.
func (g *TileGrid) Frame() Frame {
	return g.frame
}

// Width returns the image width in pixels.
func (g *TileGrid) Width() int {
	return g.frame.Width
}

// Height returns the image height in pixels.
func (g *TileGrid) Height() int {
	return g.frame.Height
}

// AllTiles returns all tiles in the grid.
// The returned slice should not be modified.
func (g *TileGrid) AllTiles() []*Tile {
	return g.tiles
}

// ForEach calls fn for each tile in the grid.
// Tiles are visited in row-major order (left-to-right, top-to-bottom).
func (g *TileGrid) ForEach(fn func(tile *Tile)) {
	for _, tile := range g.tiles {
		fn(tile)
	}
}
