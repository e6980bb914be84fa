package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmarkov/parley/internal/logging"
)

// Hub tracks live connections by socket id and by registered public name
// and routes envelopes between them.
type Hub struct {
	log logging.Logger

	mu      sync.RWMutex
	clients map[string]*client            // socket id -> connection
	rooms   map[string]map[string]*client // public name -> socket id -> connection
}

// NewHub creates an empty hub.
func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "hub"),
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Debug(context.Background(), "client registered", "socket", c.id)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.drop()
		for name, members := range h.rooms {
			if _, ok := members[c.id]; ok {
				delete(members, c.id)
				if len(members) == 0 {
					delete(h.rooms, name)
				}
			}
		}
	}
	h.mu.Unlock()
	h.log.Debug(context.Background(), "client unregistered", "socket", c.id)
}

func (h *Hub) joinRoom(name string, c *client) {
	h.mu.Lock()
	members, ok := h.rooms[name]
	if !ok {
		members = make(map[string]*client)
		h.rooms[name] = members
	}
	members[c.id] = c
	h.mu.Unlock()
	h.log.Debug(context.Background(), "room joined", "room", name, "socket", c.id)
}

// route delivers an envelope from sender to its destination. Envelopes to
// unknown destinations are dropped: the relay has no memory and no way to
// tell "offline" from "never existed".
func (h *Hub) route(ctx context.Context, sender *client, env *Envelope) {
	if env.Event == EventRegister {
		if env.Room == "" {
			h.log.Warn(ctx, "register without a room name", "socket", sender.id)
			return
		}
		h.joinRoom(env.Room, sender)
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		h.log.Warn(ctx, "dropping unmarshalable envelope", "error", err)
		return
	}

	switch {
	case env.Target != "":
		h.mu.RLock()
		dst, ok := h.clients[env.Target]
		h.mu.RUnlock()
		if !ok {
			h.log.Debug(ctx, "dropping envelope for unknown socket", "target", env.Target, "event", env.Event)
			return
		}
		if !dst.enqueue(data) {
			h.log.Warn(ctx, "dropping envelope for slow socket", "target", env.Target)
		}

	case env.Room != "":
		h.mu.RLock()
		members := make([]*client, 0, len(h.rooms[env.Room]))
		for _, m := range h.rooms[env.Room] {
			members = append(members, m)
		}
		h.mu.RUnlock()
		if len(members) == 0 {
			h.log.Debug(ctx, "dropping envelope for empty room", "room", env.Room, "event", env.Event)
			return
		}
		for _, m := range members {
			if !m.enqueue(data) {
				h.log.Warn(ctx, "dropping envelope for slow room member", "room", env.Room, "socket", m.id)
			}
		}

	default:
		h.log.Warn(ctx, "dropping unaddressed envelope", "event", env.Event, "socket", sender.id)
	}
}

// sendTo marshals and queues an envelope for one connection. Used by the
// server for relay-originated envelopes like the welcome.
func (h *Hub) sendTo(c *client, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.enqueue(data)
	return nil
}

// closeAll disconnects every client. Called on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.drop()
	}
	h.rooms = make(map[string]map[string]*client)
}
