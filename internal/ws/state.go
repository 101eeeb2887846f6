package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/grid40h/internal/grid"
	"github.com/coreman2200/grid40h/monome"
)

type eventMsg struct {
	T    int64  `json:"t"`
	Type string `json:"type"`
	X    uint   `json:"x"`
	Y    uint   `json:"y"`
}

type stateMsg struct {
	Device string `json:"device"`
	Rows   []uint `json:"rows"`
}

type replyMsg struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Rows  []uint `json:"rows"`
}

const (
	writeWait    = 200 * time.Millisecond
	clientBuffer = 64
)

// client is one /events socket. Only its own writer goroutine writes to
// conn; Publish hands messages over through send and drops them when the
// client is behind.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write event")
			return
		}
	}
}

// State serves the grid over HTTP: /events streams key events, /control
// takes commands, /health reports counters.
type State struct {
	mu        sync.Mutex
	Grid      *grid.Controller
	clients   map[*client]bool
	startTime time.Time
	events    int
	dropped   int
	upgrader  websocket.Upgrader
}

func NewState(g *grid.Controller) *State {
	return &State{
		Grid:      g,
		clients:   map[*client]bool{},
		startTime: time.Now(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *State) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.HandleEventsWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

// Publish queues ev for every /events client without waiting on any of
// them. It is meant to be registered as a poller handler.
func (s *State) Publish(ev monome.Event) {
	b, _ := json.Marshal(eventMsg{T: time.Now().UnixNano(), Type: ev.Type.String(), X: ev.X, Y: ev.Y})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.dropped++
		}
	}
}

func (s *State) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	c.send <- s.stateJSON()

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	go c.writeLoop()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			close(c.send)
			s.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd grid.Command
		reply := replyMsg{OK: true}
		if err := json.Unmarshal(data, &cmd); err != nil {
			reply.OK, reply.Error = false, err.Error()
		} else if err := s.Grid.Apply(cmd); err != nil {
			log.Warn().Err(err).Str("op", cmd.Op).Msg("control command failed")
			reply.OK, reply.Error = false, err.Error()
		}
		reply.Rows = rowsOf(s.Grid.Rows())
		b, _ := json.Marshal(reply)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.Grid.Stats()
	resp := map[string]any{
		"device":   s.Grid.String(),
		"uptime_s": time.Since(s.startTime).Seconds(),
		"clients":  len(s.clients),
		"events":   s.events,
		"dropped":  s.dropped,
		"applied":  st.Applied,
		"failed":   st.Failed,
		"rows":     rowsOf(s.Grid.Rows()),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) stateJSON() []byte {
	b, _ := json.Marshal(stateMsg{Device: s.Grid.String(), Rows: rowsOf(s.Grid.Rows())})
	return b
}

func rowsOf(rows [grid.Size]byte) []uint {
	out := make([]uint, len(rows))
	for i, v := range rows {
		out[i] = uint(v)
	}
	return out
}
