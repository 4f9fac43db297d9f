package net

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
)

const (
	writeWait              = 10 * time.Second
	maxDecodeErrorsPerPeer = 3

	defaultMaxFrameBytes = 1 << 20
	defaultFrameCeiling  = 8 << 20
)

// EndpointConfig tunes the websocket endpoint. Frames larger than
// MaxFrameBytes are discarded and the connection stays up; a frame larger
// than FrameCeiling closes the connection with 1009.
type EndpointConfig struct {
	MaxFrameBytes int64
	FrameCeiling  int64
	PeerQueue     int
}

// Peer is a websocket connection registered with the relay. Frames queued by
// the relay are written by a dedicated goroutine.
type Peer struct {
	id        string
	conn      *websocket.Conn
	out       chan relay.Frame
	closeOnce sync.Once
}

func newPeer(id string, conn *websocket.Conn, queue int) *Peer {
	return &Peer{id: id, conn: conn, out: make(chan relay.Frame, queue)}
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) Send(f relay.Frame) bool {
	select {
	case p.out <- f:
		return true
	default:
		return false
	}
}

// Close stops the writer once queued frames are flushed.
func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.out) })
}

func (p *Peer) writePump(log pslog.Logger) {
	defer p.conn.Close()
	for f := range p.out {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteJSON(f); err != nil {
			log.Debug("write failed", "participant", p.id, "err", err)
			return
		}
	}
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}

// Endpoint upgrades HTTP requests to websocket sessions attached to a relay.
type Endpoint struct {
	relay    *relay.Relay
	upgrader websocket.Upgrader
	cfg      EndpointConfig
	log      pslog.Logger
}

func NewEndpoint(r *relay.Relay, cfg EndpointConfig, logger pslog.Logger) *Endpoint {
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = defaultMaxFrameBytes
	}
	if cfg.FrameCeiling < cfg.MaxFrameBytes {
		cfg.FrameCeiling = max(defaultFrameCeiling, cfg.MaxFrameBytes)
	}
	if cfg.PeerQueue <= 0 {
		cfg.PeerQueue = 256
	}
	return &Endpoint{
		relay: r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		cfg: cfg,
		log: logger,
	}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	peer := newPeer(state.NewParticipantID(), conn, e.cfg.PeerQueue)
	log := e.log.With("participant", peer.id, "remote", r.RemoteAddr)
	go peer.writePump(log)

	ctx := context.WithoutCancel(r.Context())
	if err := e.relay.Connect(ctx, peer); err != nil {
		log.Warn("relay refused connection", "err", err)
		peer.Close()
		return
	}
	defer func() {
		if err := e.relay.Disconnect(ctx, peer.id); err != nil && !errors.Is(err, relay.ErrClosed) {
			log.Warn("disconnect", "err", err)
		}
	}()

	e.readLoop(ctx, conn, peer.id, log)
}

func (e *Endpoint) readLoop(ctx context.Context, conn *websocket.Conn, id string, log pslog.Logger) {
	conn.SetReadLimit(e.cfg.FrameCeiling)
	decodeErrors := 0
	for {
		data, oversized, err := e.readFrame(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", "err", err)
			}
			return
		}
		if oversized > 0 {
			log.Warn("oversized frame dropped", "bytes", oversized, "limit", e.cfg.MaxFrameBytes)
			continue
		}
		var f relay.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			decodeErrors++
			log.Warn("undecodable frame", "err", err, "count", decodeErrors)
			if decodeErrors >= maxDecodeErrorsPerPeer {
				return
			}
			continue
		}
		decodeErrors = 0
		if err := e.relay.Deliver(ctx, id, f); err != nil {
			return
		}
	}
}

// readFrame reads one message of at most MaxFrameBytes. A longer message is
// drained and its size returned as oversized.
func (e *Endpoint) readFrame(conn *websocket.Conn) (data []byte, oversized int64, err error) {
	_, r, err := conn.NextReader()
	if err != nil {
		return nil, 0, err
	}
	data, err = io.ReadAll(io.LimitReader(r, e.cfg.MaxFrameBytes+1))
	if err != nil {
		return nil, 0, err
	}
	if int64(len(data)) <= e.cfg.MaxFrameBytes {
		return data, 0, nil
	}
	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, 0, err
	}
	return nil, int64(len(data)) + rest, nil
}
