package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/yash1732/gigguard/internal/adapters/nats"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`    // "subscribe" | "unsubscribe"
	Worker  string `json:"worker_id"` // worker filter for "triggered" (optional)
	Channel string `json:"channel"`   // "triggered" | "acknowledged" | "escalated"
}

// channelSubject maps a client channel onto a NATS subject.
func channelSubject(channel, worker string) (string, bool) {
	switch channel {
	case "triggered":
		if worker != "" {
			return natsadapter.TriggeredSubject(worker), true
		}
		return natsadapter.TriggeredSubject(">"), true
	case "acknowledged":
		return natsadapter.AcknowledgedSubject(">"), true
	case "escalated":
		return natsadapter.EscalatedSubject(">"), true
	case "all":
		return natsadapter.SubjectAll, true
	}
	return "", false
}

// wsSubscriptions tracks one connection's NATS subscriptions. The connection
// starts on an implicit subscription to every SOS subject, which the first
// explicit subscribe replaces.
type wsSubscriptions struct {
	subs        map[string]*nats.Subscription
	implicit    bool
	subscribe   func(subject string) (*nats.Subscription, error)
	unsubscribe func(sub *nats.Subscription)
}

func newWSSubscriptions(subscribe func(string) (*nats.Subscription, error), unsubscribe func(*nats.Subscription)) (*wsSubscriptions, error) {
	ws := &wsSubscriptions{
		subs:        make(map[string]*nats.Subscription),
		subscribe:   subscribe,
		unsubscribe: unsubscribe,
	}
	sub, err := subscribe(natsadapter.SubjectAll)
	if err != nil {
		return nil, err
	}
	ws.subs[natsadapter.SubjectAll] = sub
	ws.implicit = true
	return ws, nil
}

// add subscribes to subject and reports false if it already was.
func (ws *wsSubscriptions) add(subject string) (bool, error) {
	if ws.implicit {
		ws.implicit = false
		if subject == natsadapter.SubjectAll {
			return false, nil
		}
		ws.remove(natsadapter.SubjectAll)
	}
	if _, exists := ws.subs[subject]; exists {
		return false, nil
	}
	sub, err := ws.subscribe(subject)
	if err != nil {
		return false, err
	}
	ws.subs[subject] = sub
	return true, nil
}

func (ws *wsSubscriptions) remove(subject string) bool {
	sub, exists := ws.subs[subject]
	if !exists {
		return false
	}
	ws.unsubscribe(sub)
	delete(ws.subs, subject)
	if subject == natsadapter.SubjectAll {
		ws.implicit = false
	}
	return true
}

func (ws *wsSubscriptions) closeAll() {
	for subject := range ws.subs {
		ws.remove(subject)
	}
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays SOS lifecycle events to dispatch consoles.
// Clients send JSON: {"action":"subscribe","channel":"triggered","worker_id":"W42"}
// Every connection starts on all SOS events until its first subscribe.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(map[string]interface{}{
				"subject": msg.Subject,
				"data":    json.RawMessage(msg.Data),
			})
		}

		subs, err := newWSSubscriptions(
			func(subject string) (*nats.Subscription, error) { return nc.Subscribe(subject, relay) },
			func(sub *nats.Subscription) { _ = sub.Unsubscribe() },
		)
		if err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "all"
			}
			subject, ok := channelSubject(channel, m.Worker)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				added, err := subs.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				if !added {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if subs.remove(subject) {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		subs.closeAll()
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
