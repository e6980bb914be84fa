package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/relay"
)

func startRelay(t *testing.T) string {
	t.Helper()
	s := relay.NewServer(":0", logging.NewNopLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func connect(t *testing.T, url string) *Client {
	t.Helper()
	c := New(url, logging.NewNopLogger())
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnect_AssignsSelfAddress(t *testing.T) {
	url := startRelay(t)

	a := connect(t, url)
	b := connect(t, url)

	assert.NotEmpty(t, a.SelfAddress())
	assert.NotEqual(t, a.SelfAddress(), b.SelfAddress())
}

func TestSend_DeliversToHandler(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	a := connect(t, url)
	b := connect(t, url)

	got := make(chan json.RawMessage, 1)
	b.OnMessage("sendInvitation", func(ctx context.Context, payload json.RawMessage) {
		got <- payload
	})

	require.NoError(t, a.Send(ctx, b.SelfAddress(), "sendInvitation", map[string]string{"greeting": "hi"}))

	select {
	case payload := <-got:
		assert.JSONEq(t, `{"greeting":"hi"}`, string(payload))
	case <-time.After(3 * time.Second):
		t.Fatal("envelope never arrived")
	}
}

func TestSendToRoom_DeliversToRegisteredName(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	a := connect(t, url)
	b := connect(t, url)

	got := make(chan json.RawMessage, 1)
	b.OnMessage("sendInvitation", func(ctx context.Context, payload json.RawMessage) {
		got <- payload
	})
	require.NoError(t, b.Register(ctx, "bob#2"))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, a.SendToRoom(ctx, "bob#2", "sendInvitation", map[string]string{"greeting": "hi"}))

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("room envelope never arrived")
	}
}

func TestRequest_TimesOut(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	a := connect(t, url)

	start := time.Now()
	_, err := a.Request(ctx, func() error {
		return a.Send(ctx, "nobody-home", "searchRequest", nil)
	}, "searchResult", 200*time.Millisecond)

	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRequest_ReceivesReply(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	a := connect(t, url)
	b := connect(t, url)

	// b echoes every searchRequest back as a searchResult.
	b.OnMessage("searchRequest", func(ctx context.Context, payload json.RawMessage) {
		var req struct {
			ReplyTo string `json:"replyTo"`
		}
		require.NoError(t, json.Unmarshal(payload, &req))
		require.NoError(t, b.Send(ctx, req.ReplyTo, "searchResult", map[string]string{"found": "yes"}))
	})

	payload, err := a.Request(ctx, func() error {
		return a.Send(ctx, b.SelfAddress(), "searchRequest", map[string]string{"replyTo": a.SelfAddress()})
	}, "searchResult", 3*time.Second)

	require.NoError(t, err)
	assert.JSONEq(t, `{"found":"yes"}`, string(payload))
}

func TestSend_AfterCloseFails(t *testing.T) {
	url := startRelay(t)

	a := connect(t, url)
	require.NoError(t, a.Close())

	err := a.Send(context.Background(), "anyone", "ping", nil)
	assert.ErrorIs(t, err, common.ErrDisconnected)
}
