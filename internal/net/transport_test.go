package net

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
)

func testLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
}

func startHost(t *testing.T) (*httptest.Server, *relay.Relay) {
	t.Helper()
	return startHostWith(t, EndpointConfig{})
}

func startHostWith(t *testing.T, cfg EndpointConfig) (*httptest.Server, *relay.Relay) {
	t.Helper()
	logger := testLogger()
	r := relay.New(state.NewHistory(), state.NewRegistry(nil), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	srv := httptest.NewServer(NewRouter(r, NewEndpoint(r, cfg, logger), logger))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, r
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) relay.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f relay.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) relay.Frame {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Type == eventType {
			return f
		}
	}
}

func writeFrame(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	f, err := relay.NewFrame(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(f))
}

func TestWebsocketWelcomeCommitAndUndo(t *testing.T) {
	srv, _ := startHost(t)

	a := dialWS(t, srv)
	welcomeA := readFrame(t, a)
	require.Equal(t, relay.EventWelcome, welcomeA.Type)

	b := dialWS(t, srv)
	var welcomeB relay.WelcomePayload
	require.NoError(t, readUntil(t, b, relay.EventWelcome).Decode(&welcomeB))
	assert.Len(t, welcomeB.Participants, 2)
	assert.Empty(t, welcomeB.CommittedHistory)

	var joined relay.ParticipantJoinedPayload
	require.NoError(t, readUntil(t, a, relay.EventParticipantJoined).Decode(&joined))
	assert.Equal(t, welcomeB.Participant.ID, joined.Participant.ID)

	stroke := state.Stroke{
		ID:     "a-1",
		Tool:   state.ToolBrush,
		Color:  "#000000",
		Width:  3,
		Points: []state.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}},
	}
	writeFrame(t, a, relay.EventStrokePoints, state.StrokePoints{StrokeID: "a-1", Points: stroke.Points[:2]})
	writeFrame(t, a, relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: stroke})

	var points state.StrokePoints
	require.NoError(t, readUntil(t, b, relay.EventStrokePoints).Decode(&points))
	assert.Equal(t, "a-1", points.StrokeID)

	for _, conn := range []*websocket.Conn{a, b} {
		var commit relay.StrokeCommitPayload
		require.NoError(t, readUntil(t, conn, relay.EventStrokeCommit).Decode(&commit))
		assert.Equal(t, stroke, commit.Stroke)
	}

	writeFrame(t, b, relay.EventUndoRequest, nil)
	for _, conn := range []*websocket.Conn{a, b} {
		var rebuild relay.HistoryRebuildPayload
		require.NoError(t, readUntil(t, conn, relay.EventHistoryRebuild).Decode(&rebuild))
		assert.Empty(t, rebuild.CommittedHistory)
	}
}

func TestWebsocketLeaveAndHistoryEndpoint(t *testing.T) {
	srv, _ := startHost(t)

	a := dialWS(t, srv)
	readFrame(t, a)
	b := dialWS(t, srv)
	var welcomeB relay.WelcomePayload
	require.NoError(t, readUntil(t, b, relay.EventWelcome).Decode(&welcomeB))

	writeFrame(t, b, relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: state.Stroke{
		ID: "b-1", Tool: state.ToolEraser, Color: "#ffffff", Width: 12, Points: []state.Point{{X: 1, Y: 1}},
	}})
	readUntil(t, a, relay.EventStrokeCommit)
	require.NoError(t, b.Close())

	var left relay.ParticipantLeftPayload
	require.NoError(t, readUntil(t, a, relay.EventParticipantLeft).Decode(&left))
	assert.Equal(t, welcomeB.Participant.ID, left.ParticipantID)

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.CommittedHistory, 1)
	assert.Equal(t, "b-1", history.CommittedHistory[0].ID)
}

func TestWebsocketGarbageFramesCloseConnection(t *testing.T) {
	srv, _ := startHost(t)
	a := dialWS(t, srv)
	readFrame(t, a)

	for i := 0; i < maxDecodeErrorsPerPeer; i++ {
		require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{not json")))
	}

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)
}

func TestClientConnRoundTrip(t *testing.T) {
	srv, _ := startHost(t)
	addr := strings.TrimPrefix(srv.URL, "http://")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, err := Dial(ctx, addr)
	require.NoError(t, err)

	frames := make(chan relay.Frame, 8)
	done := make(chan error, 1)
	go func() {
		done <- conn.Receive(ctx, func(f relay.Frame) error {
			frames <- f
			return nil
		}, nil)
	}()

	select {
	case f := <-frames:
		assert.Equal(t, relay.EventWelcome, f.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no welcome")
	}

	f, err := relay.NewFrame(relay.EventRedoRequest, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Send(f))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receive did not stop")
	}
	_ = conn.Close()
}

func TestRouterUpAndExport(t *testing.T) {
	srv, _ := startHost(t)

	resp, err := http.Get(srv.URL + "/up")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/export.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "%PDF-"))
}

func TestListenPortAndShareAddress(t *testing.T) {
	port, err := ListenPort(":8888")
	require.NoError(t, err)
	assert.Equal(t, 8888, port)

	_, err = ListenPort("nope")
	assert.Error(t, err)
	_, err = ListenPort(":0")
	assert.Error(t, err)

	addr, err := ShareAddress("10.1.2.3:9000")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3:9000", addr)
}

// longStroke imitates a drag across the canvas: float32 pointer positions
// widened to float64, so every coordinate carries a long decimal tail.
func longStroke(id string, n int) state.Stroke {
	points := make([]state.Point, n)
	for i := range points {
		points[i] = state.Point{
			X: float64(float32(i)*0.37 + 100.123),
			Y: float64(float32(i)*0.19 + 200.456),
		}
	}
	return state.Stroke{ID: id, Tool: state.ToolBrush, Color: "#45B7D1", Width: 3, Points: points}
}

func TestWebsocketLongStrokeReachesEveryone(t *testing.T) {
	srv, r := startHost(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dialWS(t, srv)
		readUntil(t, conns[i], relay.EventWelcome)
	}

	stroke := longStroke("long-1", 2500)
	f, err := relay.NewFrame(relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: stroke})
	require.NoError(t, err)
	raw, err := json.Marshal(f)
	require.NoError(t, err)
	require.Greater(t, len(raw), 64*1024)
	require.NoError(t, conns[0].WriteMessage(websocket.TextMessage, raw))

	for _, conn := range conns {
		var commit relay.StrokeCommitPayload
		require.NoError(t, readUntil(t, conn, relay.EventStrokeCommit).Decode(&commit))
		assert.Equal(t, stroke, commit.Stroke)
	}
	history, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestWebsocketOversizedFrameDroppedConnectionKept(t *testing.T) {
	srv, r := startHostWith(t, EndpointConfig{MaxFrameBytes: 4096, FrameCeiling: 1 << 20})

	a := dialWS(t, srv)
	readUntil(t, a, relay.EventWelcome)
	b := dialWS(t, srv)
	readUntil(t, b, relay.EventWelcome)
	readUntil(t, a, relay.EventParticipantJoined)

	writeFrame(t, a, relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: longStroke("too-big", 500)})
	small := state.Stroke{ID: "small", Tool: state.ToolBrush, Color: "#000000", Width: 3, Points: []state.Point{{X: 1, Y: 1}}}
	writeFrame(t, a, relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: small})

	for _, conn := range []*websocket.Conn{a, b} {
		var commit relay.StrokeCommitPayload
		require.NoError(t, readUntil(t, conn, relay.EventStrokeCommit).Decode(&commit))
		assert.Equal(t, "small", commit.Stroke.ID)
	}
	history, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "small", history[0].ID)
}

func TestWebsocketFrameAboveCeilingCloses(t *testing.T) {
	srv, _ := startHostWith(t, EndpointConfig{MaxFrameBytes: 1024, FrameCeiling: 4096})

	a := dialWS(t, srv)
	readUntil(t, a, relay.EventWelcome)
	writeFrame(t, a, relay.EventStrokeCommit, relay.StrokeCommitPayload{Stroke: longStroke("huge", 200)})

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := a.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "err=%v", err)
			return
		}
	}
}
