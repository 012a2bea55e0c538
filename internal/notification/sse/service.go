// Package sse provides Server-Sent Events support for real-time notification
// delivery. Delivery here is best-effort: the durable notification row is
// written before anything is pushed, so a disconnected client catches up via
// the unread query on its next connect.
package sse

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Event is an SSE event payload.
type Event struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents one connected SSE stream.
type client struct {
	userID uuid.UUID
	roles  map[string]bool
	events chan Event
}

// Service manages SSE connections and per-user/per-role fan-out.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
}

// New creates a new SSE service.
func New() *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	connected := s.clients[c.userID]
	for i, existing := range connected {
		if existing == c {
			s.clients[c.userID] = append(connected[:i], connected[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
	close(c.events)
}

// Publish pushes an event to every connection a user has open. A full client
// buffer drops the event rather than blocking the publisher.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
		default:
		}
	}
}

// PublishRole pushes an event to every connected client holding the role.
func (s *Service) PublishRole(role string, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, connected := range s.clients {
		for _, c := range connected {
			if !c.roles[role] {
				continue
			}
			select {
			case c.events <- event:
			default:
			}
		}
	}
}

// StreamFor holds an SSE connection open for the authenticated identity
// until the client disconnects.
func (s *Service) StreamFor(c *gin.Context, userID uuid.UUID, roles []string) {
	roleSet := make(map[string]bool, len(roles))
	for _, role := range roles {
		roleSet[role] = true
	}

	conn := &client{
		userID: userID,
		roles:  roleSet,
		events: make(chan Event, 16),
	}
	s.addClient(conn)
	defer s.removeClient(conn)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-conn.events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent("notification", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
