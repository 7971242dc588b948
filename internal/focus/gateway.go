package focus

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/log"
)

const (
	// sendBufferSize bounds the per-connection outbound queue. A client that
	// cannot drain this many events loses the overflow rather than stalling
	// the engine.
	sendBufferSize = 32

	// maxDecodeErrorsPerConn closes connections that keep sending frames the
	// decoder cannot parse.
	maxDecodeErrorsPerConn = 5

	// framesPerSecond / frameBurst bound inbound control messages per
	// connection. A timer UI has no legitimate reason to exceed this.
	framesPerSecond = 10
	frameBurst      = 20

	writeTimeout = 5 * time.Second
)

// clientFrame is an inbound control message.
type clientFrame struct {
	Type     string `json:"type"`
	Duration int    `json:"duration,omitempty"`
}

// errorFrame is sent back for frames the gateway understands but rejects.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// peer is one websocket connection owned by a single user. Outbound frames
// go through a buffered channel drained by a dedicated writer goroutine, so
// Notify never blocks on a slow socket.
type peer struct {
	owner string
	conn  *websocket.Conn
	send  chan any

	closeOnce sync.Once
	closed    chan struct{}
}

func newPeer(owner string, conn *websocket.Conn) *peer {
	return &peer{
		owner:  owner,
		conn:   conn,
		send:   make(chan any, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// enqueue queues a frame for delivery. Frames are dropped when the buffer is
// full or the peer is closing.
func (p *peer) enqueue(frame any) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}

// writeLoop drains the send buffer onto the socket. Runs as a goroutine per
// connection; exits when the peer closes or a write fails.
func (p *peer) writeLoop() {
	enc := json.NewEncoder(p.conn)
	for {
		select {
		case <-p.closed:
			return
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := enc.Encode(frame); err != nil {
				p.close()
				return
			}
		}
	}
}

// Gateway exposes the engine over a websocket endpoint and routes engine
// events back to the owning connection. It implements Notifier.
type Gateway struct {
	engine   *Engine
	verifier auth.Verifier
	logger   zerolog.Logger

	mu    sync.RWMutex
	peers map[string]*peer
}

// NewGateway wires the gateway as the engine's notifier.
func NewGateway(engine *Engine, verifier auth.Verifier) *Gateway {
	g := &Gateway{
		engine:   engine,
		verifier: verifier,
		logger:   log.WithComponent("focus.gateway"),
		peers:    make(map[string]*peer),
	}
	engine.SetNotifier(g)
	return g
}

// Notify delivers an engine event to the owner's connection, if one exists.
// Never blocks; overflow and ownerless events are dropped.
func (g *Gateway) Notify(owner string, evt Event) {
	g.mu.RLock()
	p := g.peers[owner]
	g.mu.RUnlock()
	if p == nil {
		return
	}
	if !p.enqueue(evt) {
		eventsDropped.Inc()
		g.logger.Warn().
			Str(log.FieldOwner, owner).
			Str("event", string(evt.Type)).
			Msg("dropped event for slow client")
	}
}

// Handler returns the HTTP handler for the focus websocket endpoint. The
// upgrade is refused without a valid access token; websocket clients carry it
// in the token query parameter or the session cookie.
func (g *Gateway) Handler() http.Handler {
	wsHandler := websocket.Handler(g.serve)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := auth.ExtractToken(r, true)
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		principal, err := g.verifier.VerifyAccess(token)
		if err != nil {
			g.logger.Debug().Err(err).Str(log.FieldPath, r.URL.Path).Msg("websocket upgrade rejected")
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(auth.ContextWithPrincipal(r.Context(), principal))
		wsHandler.ServeHTTP(w, r)
	})
}

func (g *Gateway) serve(conn *websocket.Conn) {
	principal, ok := auth.PrincipalFromContext(conn.Request().Context())
	if !ok {
		_ = conn.Close()
		return
	}
	owner := principal.UserID

	p := newPeer(owner, conn)
	go p.writeLoop()

	g.register(owner, p)
	connectionsActive.Inc()
	g.logger.Info().Str(log.FieldOwner, owner).Msg("focus connection opened")

	defer func() {
		p.close()
		connectionsActive.Dec()
		// Clean up the session only if this connection still owns the
		// registration; a reconnect may have superseded it.
		if g.unregister(owner, p) {
			g.engine.Disconnect(owner)
		}
		g.logger.Info().Str(log.FieldOwner, owner).Msg("focus connection closed")
	}()

	// Replay the live session so reconnecting clients resynchronize.
	if snap, ok := g.engine.Session(owner); ok {
		p.enqueue(snapshotFrame{Type: "session", Session: snap})
	}

	limiter := rate.NewLimiter(rate.Limit(framesPerSecond), frameBurst)
	decoder := json.NewDecoder(conn)
	decodeErrors := 0

	for {
		var frame clientFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-p.closed:
				return
			default:
			}
			decodeErrors++
			g.logger.Debug().Err(err).Str(log.FieldOwner, owner).Msg("malformed focus frame")
			p.enqueue(errorFrame{Type: "error", Error: "invalid frame"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if !limiter.Allow() {
			g.logger.Warn().Str(log.FieldOwner, owner).Msg("focus frame rate limit exceeded")
			p.enqueue(errorFrame{Type: "error", Error: "rate limit exceeded"})
			return
		}

		switch frame.Type {
		case "start":
			if !g.engine.Start(owner, frame.Duration) {
				p.enqueue(errorFrame{Type: "error", Error: "duration must be positive"})
			}
		case "pause":
			g.engine.Pause(owner)
		case "resume":
			g.engine.Resume(owner)
		case "stop":
			g.engine.Stop(owner)
		default:
			g.logger.Debug().
				Str(log.FieldOwner, owner).
				Str("frame_type", frame.Type).
				Msg("unknown focus frame type")
		}
	}
}

// snapshotFrame resynchronizes a client with its live session on connect.
type snapshotFrame struct {
	Type    string   `json:"type"`
	Session Snapshot `json:"session"`
}

// register installs p as the owner's connection, closing any predecessor.
func (g *Gateway) register(owner string, p *peer) {
	g.mu.Lock()
	old := g.peers[owner]
	g.peers[owner] = p
	g.mu.Unlock()

	if old != nil {
		old.close()
	}
}

// unregister removes p if it still owns the registration. Reports whether the
// owner is now connectionless.
func (g *Gateway) unregister(owner string, p *peer) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.peers[owner] != p {
		return false
	}
	delete(g.peers, owner)
	return true
}

// Shutdown closes every open connection and stops all live sessions.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	peers := make([]*peer, 0, len(g.peers))
	for _, p := range g.peers {
		peers = append(peers, p)
	}
	g.peers = make(map[string]*peer)
	g.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
	g.engine.Shutdown()
}
