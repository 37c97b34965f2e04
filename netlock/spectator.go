package netlock

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Uriopass/Egregoria-sub002/internal/citylog"
)

// Write deadlines, ping/pong keepalive, and a graceful close handshake
// keep slow or dead spectators from pinning server resources.
const (
	spectatorWriteWait      = 2 * time.Second
	spectatorPongWait       = 60 * time.Second
	spectatorPingPeriod     = (spectatorPongWait * 9) / 10
	spectatorCloseGracePeriod = 5 * time.Second
)

var spectatorUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SpectatorHub is a read-only push of merged per-frame inputs to any
// number of browser/debug clients, observing the authoritative UDP/TCP
// protocol without taking part in it.
type SpectatorHub struct {
	log *citylog.Logger

	mu   sync.Mutex
	subs map[*websocket.Conn]chan MergedInputs
}

func NewSpectatorHub() *SpectatorHub {
	return &SpectatorHub{
		log:  citylog.New("netlock-spectator"),
		subs: make(map[*websocket.Conn]chan MergedInputs),
	}
}

// ServeHTTP upgrades the request to a websocket and streams merged inputs
// to it until the connection closes.
func (h *SpectatorHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := spectatorUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("upgrade: %v", err)
		return
	}
	ch := make(chan MergedInputs, 32)
	h.mu.Lock()
	h.subs[ws] = ch
	h.mu.Unlock()

	defer h.close(ws)

	ws.SetReadDeadline(time.Now().Add(spectatorPongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(spectatorPongWait))
		return nil
	})
	go h.drainPing(ws)

	for merged := range ch {
		if err := ws.SetWriteDeadline(time.Now().Add(spectatorWriteWait)); err != nil {
			return
		}
		if err := ws.WriteJSON(merged); err != nil {
			return
		}
	}
}

func (h *SpectatorHub) drainPing(ws *websocket.Conn) {
	ticker := time.NewTicker(spectatorPingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(spectatorWriteWait)); err != nil {
			return
		}
	}
}

func (h *SpectatorHub) close(ws *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.subs[ws]
	delete(h.subs, ws)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
	_ = ws.SetWriteDeadline(time.Now().Add(spectatorWriteWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(spectatorCloseGracePeriod)
	ws.Close()
}

// Publish fans merged out to every connected spectator; a slow spectator
// drops frames rather than blocking the authoritative tick loop.
func (h *SpectatorHub) Publish(merged MergedInputs) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- merged:
		default:
		}
	}
}
