package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/logging"
)

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(":0", logging.NewNopLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// dial connects to the test relay and consumes the welcome envelope.
func dial(t *testing.T, ts *httptest.Server) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	env := readEnvelope(t, conn)
	require.Equal(t, EventWelcome, env.Event)
	var w Welcome
	require.NoError(t, json.Unmarshal(env.Payload, &w))
	require.NotEmpty(t, w.ID)

	return &testConn{t: t, conn: conn, id: w.ID}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return &env
}

func (c *testConn) write(env *Envelope) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(env))
}

func TestServer_WelcomeAssignsDistinctIDs(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	assert.NotEqual(t, a.id, b.id)
}

func TestServer_RouteToSocketID(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	payload := json.RawMessage(`{"hello":"bob"}`)
	a.write(&Envelope{Event: "sendInvitation", Target: b.id, Payload: payload})

	got := readEnvelope(t, b.conn)
	assert.Equal(t, "sendInvitation", got.Event)
	assert.Equal(t, b.id, got.Target)
	assert.JSONEq(t, string(payload), string(got.Payload), "payload must pass through verbatim")
}

func TestServer_RouteToRoom(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	b.write(&Envelope{Event: EventRegister, Room: "bob#2"})
	// Registration is async; give the read pump a beat.
	time.Sleep(50 * time.Millisecond)

	a.write(&Envelope{Event: "sendInvitation", Room: "bob#2", Payload: json.RawMessage(`{}`)})

	got := readEnvelope(t, b.conn)
	assert.Equal(t, "sendInvitation", got.Event)
	assert.Equal(t, "bob#2", got.Room)
}

func TestServer_UnknownTargetIsDropped(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	a.write(&Envelope{Event: "sendInvitation", Target: "no-such-socket"})
	a.write(&Envelope{Event: "sendInvitation", Target: b.id})

	// Only the second envelope arrives; the first vanished silently.
	got := readEnvelope(t, b.conn)
	assert.Equal(t, b.id, got.Target)
}

func TestServer_DisconnectLeavesRooms(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	b.write(&Envelope{Event: EventRegister, Room: "bob#2"})
	time.Sleep(50 * time.Millisecond)
	b.conn.Close()
	time.Sleep(50 * time.Millisecond)

	// Envelope to the abandoned room is dropped; a direct one still works.
	a.write(&Envelope{Event: "sendInvitation", Room: "bob#2"})

	c := dial(t, ts)
	a.write(&Envelope{Event: "ping", Target: c.id})
	got := readEnvelope(t, c.conn)
	assert.Equal(t, "ping", got.Event)
}
