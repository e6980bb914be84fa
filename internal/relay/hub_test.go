package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/logging"
)

func TestHub_EnqueueAfterUnregisterDoesNotPanic(t *testing.T) {
	h := NewHub(logging.NewNopLogger())
	c := newClient("s1", h, nil, 0, logging.NewNopLogger())
	h.register(c)
	h.unregister(c)

	require.NotPanics(t, func() {
		c.enqueue([]byte(`{"event":"x"}`))
	})
}

func TestHub_RouteRacingDisconnect(t *testing.T) {
	h := NewHub(logging.NewNopLogger())
	sender := newClient("sender", h, nil, 0, logging.NewNopLogger())
	h.register(sender)

	payload, _ := json.Marshal("hi")
	env := &Envelope{Event: "ping", Target: "victim", Payload: payload}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.route(context.Background(), sender, env)
				}
			}
		}()
	}

	// Churn the target through register/unregister while routers deliver.
	for i := 0; i < 5000; i++ {
		c := newClient("victim", h, nil, 0, logging.NewNopLogger())
		h.register(c)
		h.joinRoom(fmt.Sprintf("room-%d", i%8), c)
		h.unregister(c)
	}
	close(stop)
	wg.Wait()
}
