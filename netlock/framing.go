package netlock

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single TCP frame to guard against a malformed
// length prefix exhausting memory.
const maxFrameSize = 64 << 20

// WriteFramed writes payload prefixed with its 4-byte little-endian length.
func WriteFramed(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("netlock: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("netlock: write frame payload: %w", err)
	}
	return nil
}

// FramedTcpReceiver reads 4-byte-LE-length-prefixed frames from r.
type FramedTcpReceiver struct {
	r io.Reader
}

func NewFramedTcpReceiver(r io.Reader) *FramedTcpReceiver {
	return &FramedTcpReceiver{r: r}
}

// ReadFrame blocks until one full frame has arrived, or returns an error
// (including io.EOF on clean peer close).
func (f *FramedTcpReceiver) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(f.r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("netlock: frame size %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, fmt.Errorf("netlock: read frame payload: %w", err)
	}
	return buf, nil
}
