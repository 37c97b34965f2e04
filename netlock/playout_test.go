package netlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayoutBufferMergesOnceEveryClientAcks(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)
	p.AddClient(2)

	p.InsertInput(1, 1, []byte("a"))
	_, ok := p.TryMerge()
	assert.False(t, ok, "should not merge until every live client has contributed or acked")

	p.InsertInput(2, 1, []byte("b"))
	merged, ok := p.TryMerge()
	require.True(t, ok)
	assert.Equal(t, uint64(1), merged.Frame)
	require.Len(t, merged.Inputs, 2)
	assert.Equal(t, ClientID(1), merged.Inputs[0].Client, "merged inputs are sorted by ascending client id")
	assert.Equal(t, ClientID(2), merged.Inputs[1].Client)
	assert.Equal(t, uint64(1), p.ConsumedFrame())
}

func TestPlayoutBufferMergesExactlyOncePerFrame(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)
	p.InsertInput(1, 1, []byte("a"))

	_, ok := p.TryMerge()
	require.True(t, ok)
	_, ok = p.TryMerge()
	assert.False(t, ok, "a second merge for the same frame must not happen")
}

// A client in steady-state play only ever sends inputs; those must keep
// its ack current so it is never disconnected as lagging.
func TestSteadyInputSenderNeverLags(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)

	for f := uint64(1); f <= ackWindow+40; f++ {
		p.InsertInput(1, f, nil)
		_, ok := p.TryMerge()
		require.True(t, ok)
		assert.Empty(t, p.Lagging(), "an input for frame %d must refresh the ack", f)
	}
	assert.Equal(t, uint64(ackWindow+40), p.ConsumedFrame())
}

// An input burst far ahead of consumedFrame acks ahead; the unsigned lag
// arithmetic must not wrap that into a disconnect.
func TestAckedAheadClientNotLagging(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)
	for f := uint64(1); f <= 10; f++ {
		p.InsertInput(1, f, nil)
	}
	_, ok := p.TryMerge()
	require.True(t, ok)
	assert.Empty(t, p.Lagging())
}

func TestPlayoutBufferIgnoresPastFrames(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)
	p.InsertInput(1, 1, []byte("a"))
	_, ok := p.TryMerge()
	require.True(t, ok)

	p.InsertInput(1, 1, []byte("stale"))
	_, ok = p.TryMerge()
	assert.False(t, ok, "re-inserting a consumed frame must not re-trigger a merge")
}

func TestCatchUpSinceReturnsOnlyTheRequestedRange(t *testing.T) {
	p := NewPlayoutBuffer()
	p.AddClient(1)
	for f := uint64(1); f <= 5; f++ {
		p.InsertInput(1, f, nil)
		p.Ack(1, f)
		_, ok := p.TryMerge()
		require.True(t, ok)
	}

	packets := p.CatchUpSince(2, 4)
	require.Len(t, packets, 2)
	assert.Equal(t, uint64(3), packets[0].Frame)
	assert.Equal(t, uint64(4), packets[1].Frame)
}
