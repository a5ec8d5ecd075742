package client

import (
	"log"
	"sync"
	"time"

	"vault/engine"

	"github.com/gorilla/websocket"
)

// WSFeed subscribes to the server's change feed websocket and fans
// notifications out to local subscribers. The connection is long-lived and
// reconnects with backoff; the registry redelivers nothing on reconnect,
// so callers should re-run Engine.Init after a long gap.
type WSFeed struct {
	url string

	mu          sync.Mutex
	subscribers map[int]func(engine.Change)
	nextID      int
	closed      bool
	conn        *websocket.Conn
}

// NewWSFeed connects to the feed at url (e.g. "wss://vault.example/api/v1/feed/ws")
func NewWSFeed(url string) *WSFeed {
	f := &WSFeed{url: url, subscribers: make(map[int]func(engine.Change))}
	go f.run()
	return f
}

// Subscribe implements engine.Feed
func (f *WSFeed) Subscribe(fn func(engine.Change)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// Close stops the feed and drops the connection
func (f *WSFeed) Close() {
	f.mu.Lock()
	f.closed = true
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (f *WSFeed) run() {
	backoff := time.Second
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		f.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			log.Printf("Feed dial error: %v", err)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if !f.register(conn) {
			return
		}
		f.readLoop(conn)
	}
}

// register stores the connection unless Close won the race with the dial,
// in which case the fresh connection is dropped immediately
func (f *WSFeed) register(conn *websocket.Conn) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return false
	}
	f.conn = conn
	f.mu.Unlock()
	return true
}

func (f *WSFeed) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		var change engine.Change
		if err := conn.ReadJSON(&change); err != nil {
			f.mu.Lock()
			closed := f.closed
			f.mu.Unlock()
			if !closed {
				log.Printf("Feed read error: %v", err)
			}
			return
		}

		f.mu.Lock()
		fns := make([]func(engine.Change), 0, len(f.subscribers))
		for _, fn := range f.subscribers {
			fns = append(fns, fn)
		}
		f.mu.Unlock()

		for _, fn := range fns {
			fn(change)
		}
	}
}
