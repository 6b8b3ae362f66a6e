package clientws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "nhooyr.io/websocket"
)

const writeTimeout = 5 * time.Second

// client is one attached connection with its own writer goroutine.
type client struct {
	conn *ws.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close(reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close(ws.StatusNormalClosure, reason)
	})
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, ws.MessageText, b)
			cancel()
			if err != nil {
				c.close("write failed")
				return
			}
		}
	}
}

// Registry keeps at most one client connection per session.
type Registry struct {
	queue int

	mu    sync.Mutex
	conns map[string]*client
}

func NewRegistry(queue int) *Registry {
	if queue <= 0 {
		queue = 64
	}
	return &Registry{queue: queue, conns: make(map[string]*client)}
}

// Replace sets the connection for a session and closes the previous one if present.
func (r *Registry) Replace(sessionID string, c *ws.Conn) (prevClosed bool) {
	cl := &client{conn: c, send: make(chan []byte, r.queue), done: make(chan struct{})}
	r.mu.Lock()
	old := r.conns[sessionID]
	r.conns[sessionID] = cl
	r.mu.Unlock()
	if old != nil {
		old.close("replaced")
		prevClosed = true
	}
	go cl.writeLoop()
	metricConnections.Inc()
	return prevClosed
}

// Remove drops c if it is still the session's connection. It reports whether
// it was.
func (r *Registry) Remove(sessionID string, c *ws.Conn) bool {
	r.mu.Lock()
	cl, ok := r.conns[sessionID]
	current := ok && cl.conn == c
	if current {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()
	if current {
		cl.close("done")
	}
	metricConnections.Dec()
	return current
}

// Send queues msg for the session's client without blocking. It reports false
// when no client is attached or its queue is full.
func (r *Registry) Send(sessionID string, msg Message) bool {
	r.mu.Lock()
	cl := r.conns[sessionID]
	r.mu.Unlock()
	if cl == nil {
		return false
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.TsMs == 0 {
		msg.TsMs = time.Now().UnixMilli()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case cl.send <- b:
		metricMessages.WithLabelValues("out", msg.Type).Inc()
		return true
	case <-cl.done:
		return false
	default:
		metricSendDropped.Inc()
		return false
	}
}
