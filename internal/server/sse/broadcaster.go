// Package sse provides Server-Sent Events broadcasting for promptledger.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds writes to SSE clients so a stale connection cannot
// block a broadcast.
const WriteTimeout = 2 * time.Second

// Client represents a connected SSE client.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
}

// Broadcaster manages SSE client connections and message broadcasting.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// AddClient registers a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", id).Int("totalClients", count).Msg("SSE client connected")
	return client, nil
}

// RemoveClient removes a client connection.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	count := len(b.clients)
	b.mu.Unlock()

	select {
	case <-client.Done:
	default:
		close(client.Done)
	}
	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("SSE client disconnected")
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to every connected client. Writes race a
// timeout; clients that fail or stall are dropped.
func (b *Broadcaster) Broadcast(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal SSE data")
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	var dead []*Client
	var deadMu sync.Mutex
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !writeWithTimeout(c, message) {
				deadMu.Lock()
				dead = append(dead, c)
				deadMu.Unlock()
			}
		}(client)
	}
	wg.Wait()

	for _, c := range dead {
		b.RemoveClient(c)
	}
}

func writeWithTimeout(client *Client, message string) bool {
	done := make(chan bool, 1)
	go func() {
		_, err := client.Writer.Write([]byte(message))
		if err == nil {
			client.Flusher.Flush()
		}
		done <- err == nil
	}()

	select {
	case ok := <-done:
		return ok
	case <-time.After(WriteTimeout):
		log.Debug().Str("clientId", client.ID).Msg("SSE write timed out")
		return false
	}
}
