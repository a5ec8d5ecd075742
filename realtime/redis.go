package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"

	"vault/engine"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "vault:feed"

var (
	bridgeClient *redis.Client
	instanceID   = newInstanceID()
)

func newInstanceID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate feed instance ID: %v", err)
	}
	return hex.EncodeToString(buf)
}

// envelope wraps a change with its origin instance so an instance does not
// re-deliver its own messages when they come back from Redis
type envelope struct {
	Origin string        `json:"origin"`
	Change engine.Change `json:"change"`
}

// InitRedisBridge connects the hub to Redis pub/sub so every API instance
// fans out the same change feed. No-op when addr is empty.
func InitRedisBridge(addr string) {
	if addr == "" {
		return
	}

	bridgeClient = redis.NewClient(&redis.Options{Addr: addr})

	go func() {
		sub := bridgeClient.Subscribe(context.Background(), bridgeChannel)
		for msg := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Failed to decode feed envelope: %v", err)
				continue
			}
			if env.Origin == instanceID {
				continue
			}
			deliver(env.Change)
		}
	}()

	log.Printf("Change feed Redis bridge connected to %s", addr)
}

// publishToBridge forwards a change to the other instances, best-effort
func publishToBridge(change engine.Change) {
	if bridgeClient == nil {
		return
	}

	raw, err := json.Marshal(envelope{Origin: instanceID, Change: change})
	if err != nil {
		log.Printf("Failed to encode feed envelope: %v", err)
		return
	}
	if err := bridgeClient.Publish(context.Background(), bridgeChannel, raw).Err(); err != nil {
		log.Printf("Failed to publish feed change to Redis: %v", err)
	}
}
