// Command citysim-client is a lockstep client: it connects to a
// citysim-server, downloads the world snapshot, replays the catch-up log,
// then enters steady-state play, sending its own (here: idle/no-op)
// inputs once per tick and printing merged frames as they arrive.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Uriopass/Egregoria-sub002/internal/citylog"
	"github.com/Uriopass/Egregoria-sub002/netlock"
)

// exitVersionMismatch is returned when the server refuses the join over a
// build-version mismatch.
const exitVersionMismatch = 3

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9400, "server TCP control port; UDP input is port+1")
	name := flag.String("name", "player", "client display name")
	periodMs := flag.Int("period-ms", 50, "tick period in milliseconds, must match the server")
	flag.Parse()

	logger := citylog.New("citysim-client")
	c := netlock.NewClient(*name, netlock.BuildVersion)

	tcpAddr := net.JoinHostPort(*host, strconv.Itoa(*port))
	udpAddr := net.JoinHostPort(*host, strconv.Itoa(*port+1))
	if err := c.Connect(tcpAddr, udpAddr); err != nil {
		logger.Printf("connect: %v", err)
		if c.RefusalReason() == netlock.RefusalVersionMismatch {
			os.Exit(exitVersionMismatch)
		}
		os.Exit(1)
	}
	defer c.Close()
	logger.Printf("connected as client id=%d", c.ID())

	ticker := time.NewTicker(time.Duration(*periodMs) * time.Millisecond)
	defer ticker.Stop()

	var frame uint64
	for {
		select {
		case merged := <-c.Merged:
			fmt.Printf("frame %d: %d client inputs\n", merged.Frame, len(merged.Inputs))
		case <-ticker.C:
			frame++
			if err := c.SendInput(frame, nil); err != nil {
				logger.Printf("send input: %v", err)
				return
			}
		}
	}
}
