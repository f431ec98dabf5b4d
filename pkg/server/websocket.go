package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/littlemud/littlemud/pkg/logger"
)

// wsTransport carries one line per text frame.
type wsTransport struct {
	conn *websocket.Conn
	addr net.Addr
	mu   sync.Mutex
}

func newWSTransport(conn *websocket.Conn, addr net.Addr) *wsTransport {
	conn.SetReadLimit(maxLineLength)
	if addr == nil {
		addr = conn.RemoteAddr()
	}
	return &wsTransport{conn: conn, addr: addr}
}

func (t *wsTransport) ReadLine() (string, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (t *wsTransport) WriteLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	deadline := time.Now().Add(time.Second)
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() net.Addr { return t.addr }
func (t *wsTransport) Kind() string         { return TransportWebSocket }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the request and runs a session over it. The
// ban list is applied before the upgrade.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	addr, _ := net.ResolveTCPAddr("tcp", r.RemoteAddr)
	host := hostOf(r.RemoteAddr)
	if s.Game.IsBanned(host) {
		logger.Log.Warnf("Blocked incoming websocket connection from %s.", r.RemoteAddr)
		s.Game.Metrics.Rejected("banned")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warnf("websocket upgrade from %s failed", r.RemoteAddr)
		return
	}
	logger.Log.Infof("Incoming websocket connection from %s.", r.RemoteAddr)
	var remote net.Addr
	if addr != nil {
		remote = addr
	}
	s.startSession(newWSTransport(conn, remote))
}
