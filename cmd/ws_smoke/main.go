package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"taskboard/internal/session"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

// Smoke test against a running server: two identities connect, one
// creates and shares a public task, the other must never see it.
func main() {
	var (
		addr   string
		secret string
	)
	flagSet := pflag.NewFlagSet("ws_smoke", pflag.ExitOnError)
	flagSet.StringVar(&addr, "addr", "127.0.0.1:"+envOr("APP_PORT", "8080"), "server host:port")
	flagSet.StringVar(&secret, "jwt-secret", os.Getenv("JWT_SECRET"), "session signing secret")
	_ = flagSet.Parse(os.Args[1:])

	tokens, err := session.NewTokens(secret, time.Hour)
	if err != nil {
		log.Fatal(err)
	}
	tokenA, _, err := tokens.Issue("smoke-a@example.com", "Smoke A")
	if err != nil {
		log.Fatalf("gen token A: %v", err)
	}
	tokenB, _, err := tokens.Issue("smoke-b@example.com", "Smoke B")
	if err != nil {
		log.Fatalf("gen token B: %v", err)
	}

	connA := dial(addr, tokenA)
	defer connA.Close()
	connB := dial(addr, tokenB)
	defer connB.Close()

	waitFor(connA, "snapshot", 2*time.Second)
	waitFor(connB, "snapshot", 2*time.Second)

	body := fmt.Sprintf("smoke %d", time.Now().UnixNano())
	send(connA, map[string]any{"type": "create", "body": body, "public": true})

	var id string
	var href string
	deadline := time.Now().Add(3 * time.Second)
	for id == "" && time.Now().Before(deadline) {
		msg := waitFor(connA, "snapshot", 3*time.Second)
		tasks, _ := msg["tasks"].([]any)
		for _, raw := range tasks {
			if row, ok := raw.(map[string]any); ok && row["body"] == body {
				id, _ = row["id"].(string)
				href, _ = row["href"].(string)
			}
		}
	}
	if id == "" {
		log.Fatal("created task never arrived via push")
	}
	log.Printf("A sees task id=%s", id)

	send(connA, map[string]any{"type": "share", "id": id})
	clip := waitFor(connA, "clipboard", 2*time.Second)
	link, _ := clip["text"].(string)
	log.Printf("A share link: %s", link)

	if href == "" {
		log.Fatal("public task pushed without an href")
	}
	resp, err := http.Get("http://" + addr + href)
	if err != nil {
		log.Fatalf("public page: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	log.Printf("public page status=%d body=%s", resp.StatusCode, page)

	// B must not receive A's task
	connB.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	for {
		_, raw, err := connB.ReadMessage()
		if err != nil {
			break
		}
		var obj map[string]any
		_ = json.Unmarshal(raw, &obj)
		if tasks, _ := obj["tasks"].([]any); len(tasks) > 0 {
			for _, t := range tasks {
				if row, _ := t.(map[string]any); row["id"] == id {
					log.Fatal("B received A's task")
				}
			}
		}
	}

	send(connA, map[string]any{"type": "delete", "id": id})
	waitFor(connA, "snapshot", 2*time.Second)

	log.Println("smoke test finished")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func dial(addr, token string) *websocket.Conn {
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/tasks?token="+token, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	return conn
}

func send(conn *websocket.Conn, v any) {
	if err := conn.WriteJSON(v); err != nil {
		log.Fatalf("write: %v", err)
	}
}

func waitFor(conn *websocket.Conn, typ string, timeout time.Duration) map[string]any {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var obj map[string]any
		_ = json.Unmarshal(raw, &obj)
		if obj["type"] == typ {
			return obj
		}
	}
	log.Fatalf("timeout waiting for %s", typ)
	return nil
}
