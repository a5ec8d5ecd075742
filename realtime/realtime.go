package realtime

import (
	"log"
	"sync"

	"vault/engine"
	"vault/metrics"

	"github.com/gorilla/websocket"
)

var (
	feedClients      = make(map[*websocket.Conn]bool)          // Connected websocket feed clients
	subscribers      = make(map[int]func(engine.Change))       // In-process change feed subscribers
	nextSubscriberID int                                       // Next subscriber handle
	broadcast        = make(chan engine.Change, 64)            // Broadcast channel for changes
	mutex            sync.Mutex                                // Protects the maps above
)

// RegisterClient adds a websocket client to the change feed
func RegisterClient(conn *websocket.Conn) {
	mutex.Lock()
	feedClients[conn] = true
	mutex.Unlock()
	metrics.FeedClients.Inc()
}

// UnregisterClient removes a websocket client from the change feed
func UnregisterClient(conn *websocket.Conn) {
	mutex.Lock()
	if _, exists := feedClients[conn]; exists {
		delete(feedClients, conn)
		metrics.FeedClients.Dec()
	}
	mutex.Unlock()
}

// Subscribe registers an in-process change feed subscriber and returns its
// unsubscribe function. Used by engines embedded in the server process.
func Subscribe(fn func(engine.Change)) func() {
	mutex.Lock()
	id := nextSubscriberID
	nextSubscriberID++
	subscribers[id] = fn
	mutex.Unlock()

	return func() {
		mutex.Lock()
		delete(subscribers, id)
		mutex.Unlock()
	}
}

// LocalFeed adapts the hub to the engine.Feed contract
type LocalFeed struct{}

func (LocalFeed) Subscribe(fn func(engine.Change)) func() {
	return Subscribe(fn)
}

// Publish broadcasts a registry change to all feed clients, in-process
// subscribers and, when the Redis bridge is enabled, other API instances
func Publish(change engine.Change) {
	publishToBridge(change)
	broadcast <- change
}

// deliver fans a change out to local clients and subscribers only
func deliver(change engine.Change) {
	broadcast <- change
}

func handleBroadcast() {
	for change := range broadcast {
		metrics.FeedBroadcasts.WithLabelValues(change.EntityType).Inc()

		mutex.Lock()
		fns := make([]func(engine.Change), 0, len(subscribers))
		for _, fn := range subscribers {
			fns = append(fns, fn)
		}
		for client := range feedClients {
			if err := client.WriteJSON(change); err != nil {
				log.Printf("WebSocket write error: %v", err)
				client.Close()
				delete(feedClients, client)
				metrics.FeedClients.Dec()
			}
		}
		mutex.Unlock()

		for _, fn := range fns {
			fn(change)
		}
	}
}

func init() {
	go handleBroadcast()
}
