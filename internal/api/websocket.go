// websocket.go - Live scan feed over WebSocket
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shalset/barcode-backend/internal/models"
)

// WebSocket message types for the scan feed protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeScan      = "scan"
	MsgTypePong      = "pong"
)

// WSMessage is the scan feed envelope.
type WSMessage struct {
	Type      string       `json:"type"`
	Scan      *models.Scan `json:"scan,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// ScanHub fans completed scans out to connected WebSocket clients.
type ScanHub struct {
	upgrader websocket.Upgrader
	conns    map[*websocket.Conn]bool
	connsMu  sync.Mutex
}

// NewScanHub creates an empty hub.
func NewScanHub() *ScanHub {
	return &ScanHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// CORS policy is enforced at the HTTP layer
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

// Broadcast pushes a scan to every connected client. Clients that fail
// to accept the write are dropped.
func (hub *ScanHub) Broadcast(scan models.Scan) {
	msg := WSMessage{
		Type:      MsgTypeScan,
		Scan:      &scan,
		Timestamp: time.Now().UnixMilli(),
	}

	hub.connsMu.Lock()
	defer hub.connsMu.Unlock()
	for ws := range hub.conns {
		if err := ws.WriteJSON(msg); err != nil {
			fmt.Printf("[WebSocket] Dropping client: %v\n", err)
			ws.Close()
			delete(hub.conns, ws)
		}
	}
}

// Subscribers returns the number of connected clients.
func (hub *ScanHub) Subscribers() int {
	hub.connsMu.Lock()
	defer hub.connsMu.Unlock()
	return len(hub.conns)
}

func (hub *ScanHub) add(ws *websocket.Conn) {
	hub.connsMu.Lock()
	defer hub.connsMu.Unlock()
	hub.conns[ws] = true
}

func (hub *ScanHub) remove(ws *websocket.Conn) {
	hub.connsMu.Lock()
	defer hub.connsMu.Unlock()
	delete(hub.conns, ws)
}

// sendMessage writes a message under the hub lock so broadcasts and
// control replies never interleave on the same connection.
func (hub *ScanHub) sendMessage(ws *websocket.Conn, msg WSMessage) {
	hub.connsMu.Lock()
	defer hub.connsMu.Unlock()
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Write failed: %v\n", err)
	}
}

// HandleScanFeed upgrades the connection and streams new scans until
// the client disconnects.
func (h *Handler) HandleScanFeed(c echo.Context) error {
	ws, err := h.hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected to scan feed")
	h.hub.add(ws)
	defer h.hub.remove(ws)

	h.hub.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	// Main message loop. The feed is server-push; clients only ping.
	for {
		var msg WSMessage
		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			h.hub.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		default:
			// Ignore everything else; the feed has no client commands.
		}
	}

	fmt.Println("[WebSocket] Client disconnected from scan feed")
	return nil
}
