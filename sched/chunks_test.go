package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Uriopass/Egregoria-sub002/citydata"
)

func TestGenerateChunksParallelCoversEveryCoordinate(t *testing.T) {
	coords := []ChunkCoord{{CX: 0, CY: 0}, {CX: 1, CY: 0}, {CX: 0, CY: 1}}
	chunks := GenerateChunksParallel(coords, func(cx, cy int32) citydata.Chunk {
		return citydata.Chunk{CX: cx, CY: cy}
	})

	assert.Len(t, chunks, len(coords))
	seen := make(map[[2]int32]bool)
	for _, c := range chunks {
		seen[[2]int32{c.CX, c.CY}] = true
	}
	for _, coord := range coords {
		assert.True(t, seen[[2]int32{coord.CX, coord.CY}])
	}
}
