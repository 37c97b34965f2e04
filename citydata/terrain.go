package citydata

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

// Chunk-grid constants of the external terrain interface: terrain
// generation itself lives in the host, but the wire shape of a chunk must
// match exactly so the heightmap collaborator and the network snapshot
// stream agree on it.
const (
	ChunkSize       = 1024.0 // metres per side
	ChunkResolution = 32     // height samples per side
	ChunkCellSize   = ChunkSize / ChunkResolution
)

// TreeFraction is a tree position encoded as a 16-bit (x, y) fraction of
// the chunk's side length.
type TreeFraction struct {
	X, Y uint16
}

// Chunk is one terrain tile's height grid and tree list, as the core
// receives it from the out-of-scope heightmap/terrain-generation
// collaborator. Heights are metres, clamped at or below zero for water.
type Chunk struct {
	CX, CY  int32
	Heights [ChunkResolution * ChunkResolution]float32
	Trees   []TreeFraction
}

// ClampWater enforces the water-level convention terrain.rs uses: any
// height sample below seaLevel is water and must not poke above zero.
func (c *Chunk) ClampWater(seaLevel float32) {
	for i, h := range c.Heights {
		if h < seaLevel && h > 0 {
			c.Heights[i] = 0
		}
	}
}

// Encode writes the chunk in a stable binary field order: (cx, cy), the
// height grid, then the tree count and list. This is the same
// length-prefixed-payload discipline netlock's framing uses for TCP
// frames, reused here for the save/snapshot stream.
func (c *Chunk) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, c.CX); err != nil {
		return fmt.Errorf("citydata: encode chunk cx: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, c.CY); err != nil {
		return fmt.Errorf("citydata: encode chunk cy: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, c.Heights); err != nil {
		return fmt.Errorf("citydata: encode chunk heights: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.Trees))); err != nil {
		return fmt.Errorf("citydata: encode chunk tree count: %w", err)
	}
	for _, t := range c.Trees {
		if err := binary.Write(w, binary.LittleEndian, t); err != nil {
			return fmt.Errorf("citydata: encode chunk tree: %w", err)
		}
	}
	return nil
}

// DecodeChunk reads back what Encode wrote.
func DecodeChunk(r io.Reader) (Chunk, error) {
	var c Chunk
	if err := binary.Read(r, binary.LittleEndian, &c.CX); err != nil {
		return c, fmt.Errorf("citydata: decode chunk cx: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &c.CY); err != nil {
		return c, fmt.Errorf("citydata: decode chunk cy: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &c.Heights); err != nil {
		return c, fmt.Errorf("citydata: decode chunk heights: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return c, fmt.Errorf("citydata: decode chunk tree count: %w", err)
	}
	c.Trees = make([]TreeFraction, n)
	for i := range c.Trees {
		if err := binary.Read(r, binary.LittleEndian, &c.Trees[i]); err != nil {
			return c, fmt.Errorf("citydata: decode chunk tree: %w", err)
		}
	}
	return c, nil
}

// GeoAnchor pins the terrain grid to a real-world origin so imported
// geographic data (height samples, tree surveys) lands in local metre
// coordinates.
type GeoAnchor struct {
	Lat, Lon float64
}

// LocalXY projects (lat, lon) into metres east (x) and north (y) of the
// anchor, using great-circle distances along each axis.
func (a GeoAnchor) LocalXY(lat, lon float64) (x, y float64) {
	x = geom.HaversineMeters(a.Lat, a.Lon, a.Lat, lon)
	if lon < a.Lon {
		x = -x
	}
	y = geom.HaversineMeters(a.Lat, a.Lon, lat, a.Lon)
	if lat < a.Lat {
		y = -y
	}
	return x, y
}

// ChunkCoordOf returns the terrain chunk the geographic point falls in.
func (a GeoAnchor) ChunkCoordOf(lat, lon float64) (cx, cy int32) {
	x, y := a.LocalXY(lat, lon)
	return int32(math.Floor(x / ChunkSize)), int32(math.Floor(y / ChunkSize))
}
