package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"netmon/internal/model"
)

func TestHubBroadcastsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	h := NewHub(log)
	go h.Run(ctx)

	c := &Client{Hub: h, Send: make(chan []byte, 1)}
	h.Register(c)
	h.BroadcastEvents([]model.Event{{HostID: "h1", Severity: "critical"}})

	select {
	case raw := <-c.Send:
		var msg struct {
			Type    string        `json:"type"`
			Payload []model.Event `json:"payload"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		if msg.Type != MessageEvents || len(msg.Payload) != 1 || msg.Payload[0].HostID != "h1" {
			t.Errorf("unexpected message %s", raw)
		}
	case <-time.After(time.Second):
		t.Fatal("client received nothing")
	}
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	h := NewHub(log)
	go h.Run(ctx)

	c := &Client{Hub: h, Send: make(chan []byte, 1)}
	h.Register(c)
	cancel()

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after shutdown")
	}

	// unregistering after shutdown must not block
	h.Unregister(c)
}
