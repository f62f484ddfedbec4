// SPDX-License-Identifier: MIT
package monitor

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"capstan/internal/engine"
)

func TestPublishReachesConnectedClient(t *testing.T) {
	m := New("127.0.0.1:0")
	defer m.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+m.Addr()+"/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server registers the client asynchronously after the
	// upgrade, so keep publishing until a notice arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Publish(engine.Event{Kind: engine.EvUnderrun, Count: 7})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notice Notice
	if err := conn.ReadJSON(&notice); err != nil {
		t.Fatalf("read: %v", err)
	}
	if notice.Kind != "underrun" {
		t.Errorf("kind = %q, expected underrun", notice.Kind)
	}
	if notice.Count != 7 {
		t.Errorf("count = %d, expected 7", notice.Count)
	}
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	m := New("127.0.0.1:0")
	defer m.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			m.Publish(engine.Event{Kind: engine.EvParamAck, Node: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no connected clients")
	}
}

func TestKindNames(t *testing.T) {
	tests := []struct {
		kind engine.EventKind
		want string
	}{
		{engine.EvPlanRetired, "plan_retired"},
		{engine.EvUnderrun, "underrun"},
		{engine.EvParamAck, "param_ack"},
		{engine.EvFatal, "fatal"},
		{engine.EvStopped, "stopped"},
	}
	for _, tt := range tests {
		if got := kindName(tt.kind); got != tt.want {
			t.Errorf("kindName(%v) = %q, expected %q", tt.kind, got, tt.want)
		}
	}
}
