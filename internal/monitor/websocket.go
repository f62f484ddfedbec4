// SPDX-License-Identifier: MIT
// Package monitor publishes engine events to websocket clients so an
// operator can watch underruns, plan swaps, and parameter traffic
// live. It sits entirely on the control side.
package monitor

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"capstan/internal/engine"
	"capstan/internal/log"
)

// Notice is the JSON shape of one published event.
type Notice struct {
	Kind  string `json:"kind"`
	Node  uint64 `json:"node,omitempty"`
	Count uint64 `json:"count,omitempty"`
	Code  uint8  `json:"code,omitempty"`
}

// Monitor broadcasts engine events to all connected clients.
type Monitor struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Notice
	server    *http.Server
}

// New creates a monitor and starts serving websocket upgrades on
// addr at path /events.
func New(addr string) *Monitor {
	m := &Monitor{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local diagnostics tool, any origin
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Notice, 256),
	}
	m.start()
	return m
}

func (m *Monitor) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", m.handleWebSocket)

	m.server = &http.Server{
		Addr:    m.addr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		log.Errorf("monitor: listen on %s failed: %v", m.addr, err)
		return
	}
	m.addr = ln.Addr().String()

	go func() {
		log.Infof("monitor: serving events on ws://%s/events", m.addr)
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("monitor: server error: %v", err)
		}
	}()

	go m.handleBroadcasts()
}

// Addr returns the bound listen address, useful when the configured
// address requested an ephemeral port.
func (m *Monitor) Addr() string {
	return m.addr
}

func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("monitor: upgrade error: %v", err)
		return
	}

	m.clientsMu.Lock()
	m.clients[conn] = true
	total := len(m.clients)
	m.clientsMu.Unlock()
	log.Infof("monitor: client connected, total: %d", total)

	go func() {
		// Block until the client goes away.
		if _, _, err := conn.ReadMessage(); err != nil {
			m.clientsMu.Lock()
			delete(m.clients, conn)
			m.clientsMu.Unlock()
			conn.Close()
			log.Debugf("monitor: client disconnected")
		}
	}()
}

func (m *Monitor) handleBroadcasts() {
	for notice := range m.broadcast {
		m.clientsMu.Lock()
		for client := range m.clients {
			if err := client.WriteJSON(notice); err != nil {
				client.Close()
				delete(m.clients, client)
			}
		}
		m.clientsMu.Unlock()
	}
}

// Publish queues one engine event for broadcast. Never blocks; when
// the queue is full the notice is dropped.
func (m *Monitor) Publish(ev engine.Event) {
	notice := Notice{
		Kind:  kindName(ev.Kind),
		Node:  uint64(ev.Node),
		Count: ev.Count,
		Code:  uint8(ev.Code),
	}
	select {
	case m.broadcast <- notice:
	default:
	}
}

// Close shuts down the server and disconnects all clients.
func (m *Monitor) Close() error {
	m.clientsMu.Lock()
	for client := range m.clients {
		client.Close()
	}
	m.clients = make(map[*websocket.Conn]bool)
	m.clientsMu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}

func kindName(k engine.EventKind) string {
	switch k {
	case engine.EvPlanRetired:
		return "plan_retired"
	case engine.EvUnderrun:
		return "underrun"
	case engine.EvParamAck:
		return "param_ack"
	case engine.EvFatal:
		return "fatal"
	case engine.EvStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
