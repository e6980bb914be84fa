package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmarkov/parley/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay carries only encrypted or signed material and has no
	// cookies or sessions to protect, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the relay's HTTP front: a single websocket endpoint backed by
// a hub. ReadLimit and ShutdownGrace may be adjusted after NewServer and
// before Run.
type Server struct {
	addr string
	hub  *Hub
	log  logging.Logger
	http *http.Server

	// ReadLimit caps the size of a single inbound envelope in bytes.
	ReadLimit int64
	// ShutdownGrace bounds how long Run waits for connections to drain.
	ShutdownGrace time.Duration
}

// NewServer creates a relay server listening on addr.
func NewServer(addr string, log logging.Logger) *Server {
	s := &Server{
		addr:          addr,
		hub:           NewHub(log),
		log:           log.With("component", "relay"),
		ReadLimit:     maxMessageSize,
		ShutdownGrace: 5 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "upgrade failed", "error", err)
		return
	}

	c := newClient(uuid.NewString(), s.hub, conn, s.ReadLimit, s.log)
	s.hub.register(c)

	go c.writePump()

	welcome, _ := json.Marshal(Welcome{ID: c.id})
	if err := s.hub.sendTo(c, &Envelope{Event: EventWelcome, Payload: welcome}); err != nil {
		s.log.Error(r.Context(), "welcome failed", "error", err)
	}

	go c.readPump(context.Background())
}

// Handler exposes the relay's HTTP handler for embedding in an existing
// mux or a test server.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then drains connections and shuts
// the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "relay listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info(ctx, "relay shutting down")
	s.hub.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownGrace)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
