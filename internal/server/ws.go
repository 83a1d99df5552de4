package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradingDashboard/internal/domain"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// wsMessage is one frame pushed to /ws subscribers.
type wsMessage struct {
	Type     string        `json:"type"` // "kline" or "error"
	Symbol   string        `json:"symbol"`
	Interval string        `json:"interval"`
	Kline    *domain.Kline `json:"kline,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// wsConn is a single subscriber. Producers never block on it: frames are
// dropped when the send buffer is full.
type wsConn struct {
	conn     *websocket.Conn
	send     chan wsMessage
	symbol   string
	interval string
}

func (w *wsConn) push(m wsMessage) bool {
	m.Symbol, m.Interval = w.symbol, w.interval
	select {
	case w.send <- m:
		return true
	default:
		return false
	}
}

// handleWebSocket streams klines for one symbol/interval. Providers with a
// native push stream are forwarded; others are polled at the configured interval.
func (s *Server) handleWebSocket(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	interval := intervalParam(c)

	// Validates the request and gives the client an immediate snapshot.
	initial, err := s.market.Candles(c.Request.Context(), symbol, interval, 1)
	if err != nil {
		s.writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn(c.Request.Context(), "WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.WSClients.Inc()
		defer s.metrics.WSClients.Dec()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &wsConn{conn: conn, send: make(chan wsMessage, sendBuffer), symbol: symbol, interval: interval}
	fields := map[string]interface{}{"symbol": symbol, "interval": interval, "remote": c.Request.RemoteAddr}
	s.logger.Info(ctx, "WebSocket client connected", fields)

	var last *domain.Kline
	if len(initial) > 0 {
		last = initial[len(initial)-1]
		client.push(wsMessage{Type: "kline", Kline: last})
	}

	go s.readPump(client, cancel)

	if streamer, ok := s.market.Streamer(symbol); ok {
		_, _, err := streamer.StreamKlines(ctx, symbol, interval,
			func(k *domain.Kline) { client.push(wsMessage{Type: "kline", Kline: k}) },
			func(err error) { client.push(wsMessage{Type: "error", Error: err.Error()}) },
		)
		if err != nil {
			s.logger.Warn(ctx, "Kline stream unavailable, falling back to polling", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			go s.poll(ctx, client, last)
		}
	} else {
		go s.poll(ctx, client, last)
	}

	s.writePump(ctx, client)
	s.logger.Info(ctx, "WebSocket client disconnected", fields)
}

// poll fetches the latest kline every pollInterval and pushes it when it changed.
func (s *Server) poll(ctx context.Context, client *wsConn, last *domain.Kline) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		klines, err := s.market.Candles(ctx, client.symbol, client.interval, 1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			client.push(wsMessage{Type: "error", Error: err.Error()})
			continue
		}
		if len(klines) == 0 {
			continue
		}
		k := klines[len(klines)-1]
		if last != nil && sameKline(last, k) {
			continue
		}
		last = k
		client.push(wsMessage{Type: "kline", Kline: k})
	}
}

func sameKline(a, b *domain.Kline) bool {
	return a.OpenTime.Equal(b.OpenTime) && a.Close == b.Close && a.Volume == b.Volume && a.IsFinal == b.IsFinal
}

// readPump discards client frames and cancels the connection context on close.
func (s *Server) readPump(client *wsConn, cancel context.CancelFunc) {
	defer cancel()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug(context.Background(), "WebSocket read error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, client *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				s.logger.Debug(ctx, "WebSocket write failed", map[string]interface{}{"error": err.Error()})
				return
			}
			if s.metrics != nil {
				s.metrics.WSMessagesSent.Inc()
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
