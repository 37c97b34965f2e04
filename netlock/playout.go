package netlock

import "sort"

// ackWindow bounds how far behind consumedFrame a client's ack may lag
// before it is disconnected.
const ackWindow = 120

// PlayoutBuffer is the server's per-frame input merge point: it stores
// future per-client inputs, and once every live client has acked
// consumedFrame+1 it merges, distributes, and advances.
type PlayoutBuffer struct {
	consumedFrame uint64
	pending       map[uint64]map[ClientID][]byte
	acked         map[ClientID]uint64
	live          map[ClientID]bool
	catchUp       []MergedInputs
}

func NewPlayoutBuffer() *PlayoutBuffer {
	return &PlayoutBuffer{
		pending: make(map[uint64]map[ClientID][]byte),
		acked:   make(map[ClientID]uint64),
		live:    make(map[ClientID]bool),
	}
}

// ConsumedFrame returns the last frame whose inputs were finalised.
func (p *PlayoutBuffer) ConsumedFrame() uint64 { return p.consumedFrame }

// AddClient registers a newly accepted client starting at the buffer's
// current frame so it is not immediately considered lagging.
func (p *PlayoutBuffer) AddClient(id ClientID) {
	p.live[id] = true
	p.acked[id] = p.consumedFrame
}

// RemoveClient drops a disconnected or timed-out client from bookkeeping.
func (p *PlayoutBuffer) RemoveClient(id ClientID) {
	delete(p.live, id)
	delete(p.acked, id)
}

// InsertInput stores a client's input for a future frame. Sending input
// for a frame implicitly acknowledges everything before it: a client in
// steady-state play only ever sends inputs, so this is what keeps its ack
// current between the one-shot world/catch-up acks of the handshake.
func (p *PlayoutBuffer) InsertInput(client ClientID, frame uint64, bytes []byte) {
	p.Ack(client, frame)
	if frame <= p.consumedFrame {
		return
	}
	m, ok := p.pending[frame]
	if !ok {
		m = make(map[ClientID][]byte)
		p.pending[frame] = m
	}
	m[client] = bytes
}

// Ack records that client has received/processed up through frame.
func (p *PlayoutBuffer) Ack(client ClientID, frame uint64) {
	if cur, ok := p.acked[client]; !ok || frame > cur {
		p.acked[client] = frame
	}
}

// Lagging returns the set of clients whose ack trails consumedFrame by
// more than ackWindow; the caller disconnects them. A client acked at or
// ahead of consumedFrame is never lagging.
func (p *PlayoutBuffer) Lagging() []ClientID {
	var out []ClientID
	for id := range p.live {
		if acked := p.acked[id]; acked < p.consumedFrame && p.consumedFrame-acked > ackWindow {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TryMerge merges and advances consumedFrame by one frame when every live
// client has a stored input for consumedFrame+1 (or has acked past it,
// meaning it has no input to contribute this frame but is current). It
// returns the merged packet and true if a merge occurred.
func (p *PlayoutBuffer) TryMerge() (MergedInputs, bool) {
	target := p.consumedFrame + 1
	m := p.pending[target]
	for id := range p.live {
		if _, hasInput := m[id]; hasInput {
			continue
		}
		if p.acked[id] >= target {
			continue
		}
		return MergedInputs{}, false
	}

	ids := make([]ClientID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	merged := MergedInputs{Frame: target}
	for _, id := range ids {
		merged.Inputs = append(merged.Inputs, ClientFrameInput{Client: id, Bytes: m[id]})
	}

	delete(p.pending, target)
	p.consumedFrame = target
	p.catchUp = append(p.catchUp, merged)
	return merged, true
}

// CatchUpSince returns every merged packet strictly after from, up to and
// including to, for streaming to a client that joined mid-game.
func (p *PlayoutBuffer) CatchUpSince(from, to uint64) []MergedInputs {
	var out []MergedInputs
	for _, m := range p.catchUp {
		if m.Frame > from && m.Frame <= to {
			out = append(out, m)
		}
	}
	return out
}
