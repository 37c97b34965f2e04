// Command citysim-server runs the authoritative lockstep sequencer:
// it merges per-client inputs once per frame, streams the world to
// joiners, and advances the simulation on a fixed timestep.
//
// Exit codes: 0 on normal shutdown, 2 on a fatal bind failure; a version
// mismatch refusing a join is surfaced as a log line since the server
// itself never joins.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/internal/citylog"
	"github.com/Uriopass/Egregoria-sub002/netlock"
	"github.com/Uriopass/Egregoria-sub002/sched"
)

const exitBindFailure = 2

func main() {
	port := flag.Int("port", 9400, "TCP control port; UDP input listens on port+1")
	periodMs := flag.Int("period-ms", 50, "tick period in milliseconds")
	showVersion := flag.Bool("version", false, "print the build version and exit")
	alwaysRun := flag.Bool("always-run", false, "advance the simulation even with zero clients")
	virtualClient := flag.Bool("virtual-client", false, "register a server-side phantom client with no networking")
	spectatorAddr := flag.String("spectator-addr", "", "if set, serve a websocket spectator stream on this address")
	flag.Parse()

	if *showVersion {
		fmt.Println(netlock.BuildVersion)
		return
	}

	logger := citylog.New("citysim-server")

	m := citymap.NewMap()
	w := sched.NewWorld()
	gt := &sched.GameTime{Speed: 1}
	res := sched.NewResources()
	replay := sched.NewReplay()
	schedule := sched.NewSeqSchedule(replay, nil)
	sched.Put(res, sched.NewRandProvider(uint64(*port)))

	opts := netlock.ServerOptions{
		Addr:      net.JoinHostPort("", strconv.Itoa(*port)),
		UDPAddr:   net.JoinHostPort("", strconv.Itoa(*port+1)),
		Period:    time.Duration(*periodMs) * time.Millisecond,
		AlwaysRun: *alwaysRun,
	}
	srv := netlock.NewServer(opts, func() []byte {
		return snapshotWorld(&sched.Simulation{World: w, Map: m, Time: *gt, Replay: replay})
	})

	// One merged frame = one logical tick: client input bytes are
	// JSON-encoded WorldCommands, malformed ones are logged and discarded.
	srv.ApplyInput = func(merged netlock.MergedInputs) {
		for _, in := range merged.Inputs {
			if len(in.Bytes) == 0 {
				continue
			}
			var cmd sched.WorldCommand
			if err := json.Unmarshal(in.Bytes, &cmd); err != nil {
				logger.Printf("client %d frame %d: discarding malformed command: %v", in.Client, merged.Frame, err)
				continue
			}
			schedule.PushCommand(cmd)
		}
		for _, err := range schedule.Step(w, m, res, gt) {
			logger.Printf("frame %d: command refused: %v", merged.Frame, err)
		}
	}

	if err := srv.Listen(); err != nil {
		logger.Printf("fatal: %v", err)
		os.Exit(exitBindFailure)
	}
	defer srv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *virtualClient {
		id := srv.AddVirtualClient()
		logger.Printf("registered virtual client id=%d", id)
		go feedVirtualClient(ctx, srv, id, opts.Period)
	}

	if *spectatorAddr != "" {
		go func() {
			if err := serveSpectator(*spectatorAddr, srv); err != nil {
				logger.Printf("spectator: %v", err)
			}
		}()
	}

	logger.Printf("listening tcp=%s udp=%s period=%s", opts.Addr, opts.UDPAddr, opts.Period)
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Printf("serve: %v", err)
		os.Exit(1)
	}
	logger.Printf("shut down")
}

// snapshotWorld serialises the running simulation into the versioned save
// stream a joining client downloads.
func snapshotWorld(sim *sched.Simulation) []byte {
	var buf bytes.Buffer
	if err := sched.Save(&buf, sim); err != nil {
		citylog.New("citysim-server").Printf("snapshot: %v", err)
		return nil
	}
	return buf.Bytes()
}

// feedVirtualClient inserts one empty input per period on the virtual
// client's behalf; without this the playout buffer would wait on it
// forever and no frame could merge.
func feedVirtualClient(ctx context.Context, srv *netlock.Server, id netlock.ClientID, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	var frame uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame++
			srv.InsertVirtualInput(id, frame, nil)
		}
	}
}

func serveSpectator(addr string, srv *netlock.Server) error {
	mux := http.NewServeMux()
	mux.Handle("/spectate", srv.Spectator)
	return http.ListenAndServe(addr, mux)
}
