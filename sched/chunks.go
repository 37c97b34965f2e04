package sched

import (
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/Uriopass/Egregoria-sub002/citydata"
)

// ChunkCoord addresses one terrain tile.
type ChunkCoord struct{ CX, CY int32 }

// GenerateChunksParallel runs gen for every coordinate concurrently (each
// call is purely functional per (cx, cy)) and fans the results back in
// through a single channel drained into a slice.
func GenerateChunksParallel(coords []ChunkCoord, gen func(cx, cy int32) citydata.Chunk) []citydata.Chunk {
	chans := make([]<-chan citydata.Chunk, len(coords))
	for i, c := range coords {
		out := make(chan citydata.Chunk, 1)
		chans[i] = out
		go func(cx, cy int32, out chan<- citydata.Chunk) {
			defer close(out)
			out <- gen(cx, cy)
		}(c.CX, c.CY, out)
	}

	done := make(chan struct{})
	defer close(done)
	results := make([]citydata.Chunk, 0, len(coords))
	for chunk := range channerics.Merge[citydata.Chunk](done, chans...) {
		results = append(results, chunk)
	}
	return results
}
