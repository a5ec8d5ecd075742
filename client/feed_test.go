package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vault/engine"

	"github.com/gorilla/websocket"
)

func feedServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSFeedRegisterRefusesAfterClose(t *testing.T) {
	srv, url := feedServer(t)
	defer srv.Close()

	feed := &WSFeed{url: url, subscribers: make(map[int]func(engine.Change))}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	// Close wins the race against an in-flight dial: the fresh connection
	// must be dropped, not left open until its next read error
	feed.Close()
	if feed.register(conn) {
		t.Fatal("register accepted a connection after Close")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err == nil {
		t.Error("connection should have been closed by register")
	}
}

func TestWSFeedRegisterStoresConn(t *testing.T) {
	srv, url := feedServer(t)
	defer srv.Close()

	feed := &WSFeed{url: url, subscribers: make(map[int]func(engine.Change))}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if !feed.register(conn) {
		t.Fatal("register refused a connection on an open feed")
	}
	feed.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err == nil {
		t.Error("Close should close the registered connection")
	}
}
