package httpserver

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsFilter is what a client sends to change its filter.
type wsFilter struct {
	Levels      []string `json:"levels"`
	IDs         []string `json:"ids"`
	Query       string   `json:"q"`
	Granularity string   `json:"granularity"`
}

type wsMessage struct {
	Type  string          `json:"type"`
	View  *aggregate.View `json:"view,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handleWS pushes a summary on connect and a fresh one for every filter the
// client sends.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("httpserver: websocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer func() {
		cancel()
		conn.Close()
	}()

	filters := make(chan wsFilter, 1)
	filters <- wsFilter{}
	go s.readPump(ctx, cancel, conn, filters)
	s.writePump(ctx, conn, filters)
}

func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- wsFilter) {
	defer cancel()
	for {
		var req wsFilter
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("httpserver: websocket read error: %v", err)
			}
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, in <-chan wsFilter) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case req := <-in:
			if err := conn.WriteJSON(s.wsReply(req)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) wsReply(req wsFilter) wsMessage {
	f, err := aggregate.NewFilter(req.Levels, req.IDs, req.Query)
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}
	opts := s.opts
	if req.Granularity != "" {
		g, err := aggregate.ParseGranularity(req.Granularity)
		if err != nil {
			return wsMessage{Type: "error", Error: err.Error()}
		}
		opts.Granularity = g
	}
	v := aggregate.Build(s.dataset, f, opts)
	return wsMessage{Type: "summary", View: &v}
}

