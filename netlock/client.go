package netlock

import (
	"fmt"
	"net"
	"sync"

	"github.com/Uriopass/Egregoria-sub002/internal/citylog"
)

// ClientState is the lockstep client's connection lifecycle:
// Connecting -> (handshake) -> Accepted/Refused -> Downloading ->
// CatchingUp -> Playing.
type ClientState int

const (
	StateConnecting ClientState = iota
	StateRefused
	StateDownloading
	StateCatchingUp
	StatePlaying
)

// Client is a lockstep peer: it sends its own inputs over UDP and
// receives the server's merged-input stream, after downloading a world
// snapshot and replaying the catch-up log to reach the live frame.
type Client struct {
	log     *citylog.Logger
	name    string
	version uint32

	tcp  net.Conn
	recv *FramedTcpReceiver
	udp  *net.UDPConn

	mu            sync.Mutex
	state         ClientState
	id            ClientID
	refusalReason RefusalReason

	worldParts    map[int][]byte
	worldTotal    int
	catchUpTarget uint64

	Merged chan MergedInputs
}

func NewClient(name string, version uint32) *Client {
	return &Client{
		log:        citylog.New("netlock-client"),
		name:       name,
		version:    version,
		state:      StateConnecting,
		worldParts: make(map[int][]byte),
		Merged:     make(chan MergedInputs, 64),
	}
}

// Connect performs the TCP handshake, resolves the UDP input socket, and
// spawns the receive loops. It blocks until accepted or refused.
func (c *Client) Connect(tcpAddr, udpAddr string) error {
	conn, err := net.Dial("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("netlock: dial tcp %s: %w", tcpAddr, err)
	}
	c.tcp = conn
	c.recv = NewFramedTcpReceiver(conn)

	payload, err := gobEncode(ClientReliable{Kind: "Connect", Name: c.name, Version: c.version})
	if err != nil {
		return err
	}
	if err := WriteFramed(conn, payload); err != nil {
		return fmt.Errorf("netlock: send handshake: %w", err)
	}

	frame, err := c.recv.ReadFrame()
	if err != nil {
		return fmt.Errorf("netlock: read authent response: %w", err)
	}
	var resp ServerReliable
	if err := gobDecode(frame, &resp); err != nil {
		return err
	}
	if !resp.Accepted {
		c.mu.Lock()
		c.state = StateRefused
		c.refusalReason = resp.Reason
		c.mu.Unlock()
		return fmt.Errorf("netlock: connection refused: reason=%d", resp.Reason)
	}

	c.mu.Lock()
	c.id = resp.ID
	c.state = StateDownloading
	c.mu.Unlock()

	raddr, err := net.ResolveUDPAddr("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("netlock: resolve udp %s: %w", udpAddr, err)
	}
	udpConn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("netlock: dial udp %s: %w", udpAddr, err)
	}
	c.udp = udpConn

	go c.tcpReadLoop()
	go c.udpReadLoop()
	return nil
}

func (c *Client) ID() ClientID { return c.id }

// RefusalReason reports why the handshake was refused, RefusalNone if it
// was not.
func (c *Client) RefusalReason() RefusalReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refusalReason
}
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// tcpReadLoop handles WorldPart and CatchUp framed messages.
func (c *Client) tcpReadLoop() {
	for {
		frame, err := c.recv.ReadFrame()
		if err != nil {
			return
		}
		var msg ServerReliable
		if err := gobDecode(frame, &msg); err != nil {
			continue
		}
		switch msg.Kind {
		case "WorldPart":
			c.mu.Lock()
			c.worldParts[msg.Seq] = msg.WorldBytes
			c.worldTotal = msg.Total
			complete := len(c.worldParts) >= c.worldTotal
			c.mu.Unlock()
			if complete {
				c.ackWorld()
			}
		case "CatchUp":
			c.mu.Lock()
			c.catchUpTarget = msg.CatchUpTo
			c.state = StateCatchingUp
			c.mu.Unlock()
			for _, m := range msg.CatchUpPackets {
				c.Merged <- m
			}
			c.ackCatchUp(msg.CatchUpTo)
			c.mu.Lock()
			c.state = StatePlaying
			c.mu.Unlock()
		}
	}
}

func (c *Client) ackWorld() {
	payload, _ := gobEncode(ClientReliable{Kind: "WorldAck"})
	_ = WriteFramed(c.tcp, payload)
}

func (c *Client) ackCatchUp(frame uint64) {
	payload, _ := gobEncode(ClientReliable{Kind: "CatchUpAck", AckedFrame: frame})
	_ = WriteFramed(c.tcp, payload)
}

// WorldSnapshot reassembles the downloaded world snapshot in part order.
func (c *Client) WorldSnapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []byte
	for i := 0; i < c.worldTotal; i++ {
		out = append(out, c.worldParts[i]...)
	}
	return out
}

func (c *Client) udpReadLoop() {
	buf := make([]byte, 8192)
	for {
		n, err := c.udp.Read(buf)
		if err != nil {
			return
		}
		var pkt ServerUnreliable
		if err := gobDecode(buf[:n], &pkt); err != nil {
			continue
		}
		if pkt.Kind == "Input" {
			c.Merged <- pkt.Merged
		}
	}
}

// SendInput transmits this client's input for frame over UDP (idempotent,
// re-sendable: losing a packet just delays that frame's merge).
func (c *Client) SendInput(frame uint64, bytes []byte) error {
	payload, err := gobEncode(ClientUnreliable{Kind: "Input", ID: c.id, Inputs: []FrameInput{{Frame: frame, Bytes: bytes}}})
	if err != nil {
		return err
	}
	_, err = c.udp.Write(payload)
	return err
}

func (c *Client) Close() error {
	if c.udp != nil {
		_ = c.udp.Close()
	}
	if c.tcp != nil {
		return c.tcp.Close()
	}
	return nil
}
