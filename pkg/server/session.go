package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/littlemud/littlemud/pkg/events"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	outputBacklog  = 256
	handoffTimeout = 5 * time.Second
	resolveTimeout = 3 * time.Second
)

// Session is one client connection and its protocol state. Fields below
// the marker are owned by the world executor.
type Session struct {
	ID        string
	Connected time.Time

	g      *Game
	t      Transport
	remote string // raw remote host
	port   string

	mu       sync.Mutex
	hostname string
	closed   bool
	out      chan string
	log      *logrus.Entry

	done chan struct{}

	// --- executor-owned ---
	State   State
	player  *gamedb.Object
	uid     string
	pwd     string
	name    string
	tries   int
	readFn  func(string) error
	timeout *Timer

	// Post-login hand-off waiting to be completed outside the executor.
	handoffOld    *Session
	handoffPlayer *gamedb.Object
}

var _ gamedb.Conn = (*Session)(nil)

func newSession(g *Game, t Transport) *Session {
	remote, port := splitAddr(t.RemoteAddr())
	s := &Session{
		ID:        uuid.NewString(),
		Connected: time.Now(),
		g:         g,
		t:         t,
		remote:    remote,
		port:      port,
		hostname:  remote,
		out:       make(chan string, outputBacklog),
		done:      make(chan struct{}),
		State:     Username,
	}
	s.log = logger.Log.WithFields(logrus.Fields{
		"session": s.ID[:8],
		"remote":  net.JoinHostPort(remote, port),
	})
	return s
}

func splitAddr(addr net.Addr) (host, port string) {
	if addr == nil {
		return "unknown", "0"
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), "0"
	}
	return host, port
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Serve runs the session until the transport closes. It starts the reader
// and writer goroutines and feeds every line to the executor in order.
func (s *Session) Serve() {
	go s.writeLoop()
	go s.resolve()

	lines := make(chan string, 16)
	go s.readLoop(lines)

	if err := s.g.Exec.Do(s.connected); err != nil {
		s.log.WithError(err).Error("could not start session")
		s.Disconnect()
	}
	s.finishHandoff()

	for line := range lines {
		s.handle(line)
	}
	s.teardown()
}

func (s *Session) readLoop(lines chan<- string) {
	defer close(lines)
	for {
		line, err := s.t.ReadLine()
		if err != nil {
			if !s.isClosed() {
				s.log.WithError(err).Debug("read ended")
			}
			return
		}
		lines <- line
	}
}

func (s *Session) writeLoop() {
	defer s.t.Close()
	failed := false
	for line := range s.out {
		if failed {
			continue
		}
		if err := s.t.WriteLine(line); err != nil {
			s.log.WithError(err).Debug("write failed")
			failed = true
		}
	}
}

// resolve looks up the remote hostname. Until it finishes, and when it
// fails, Host reports the raw address.
func (s *Session) resolve() {
	if s.g.LookupAddr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	names, err := s.g.LookupAddr(ctx, s.remote)
	if err != nil || len(names) == 0 {
		return
	}
	s.mu.Lock()
	s.hostname = strings.TrimSuffix(names[0], ".")
	s.mu.Unlock()
}

func (s *Session) handle(line string) {
	if s.isClosed() {
		return
	}
	line = strings.TrimSpace(line)
	if err := s.g.Exec.Do(func() { s.handleLine(line) }); err != nil {
		s.log.WithError(err).Error("line handling failed")
		if errors.Is(err, ErrExecutorStopped) {
			s.Disconnect()
			return
		}
	}
	s.finishHandoff()
}

// finishHandoff completes a post-login that found the player bound to
// another session. The old session is redirected and closed, and the
// player is only bound here once it has fully gone or the wait expired.
// Another session may have taken the player while this one waited; it is
// redirected in turn before binding.
func (s *Session) finishHandoff() {
	old, p := s.handoffOld, s.handoffPlayer
	if p == nil {
		return
	}
	s.handoffOld, s.handoffPlayer = nil, nil

	for old != nil {
		s.g.Exec.Do(func() {
			old.log.Warnf("Disconnecting in favour of %s:%s.", s.remote, s.port)
			old.Send(s.redirectMsg())
			old.Disconnect()
			old.emit(events.EvRedirect, p)
		})

		select {
		case <-old.Done():
		case <-time.After(handoffTimeout):
			s.log.Warnf("old session %s did not close in time", old.ID[:8])
		}

		waited := old
		old = nil
		err := s.g.Exec.Do(func() {
			if cur, ok := p.Account.Conn.(*Session); ok && cur != s && cur != waited && !cur.isClosed() {
				old = cur
				return
			}
			s.bind(p)
		})
		if err != nil {
			s.log.WithError(err).Error("could not bind player")
			s.Disconnect()
			return
		}
	}
}

// redirectMsg is the notice sent to a session replaced by this one.
func (s *Session) redirectMsg() string {
	return strings.NewReplacer("{host}", s.remote, "{port}", s.port).
		Replace(s.g.DB.Settings.GetString("redirect_msg"))
}

func (s *Session) teardown() {
	s.Disconnect()
	err := s.g.Exec.Do(func() {
		s.timeout.Cancel()
		s.timeout = nil
		s.unbind()
	})
	if err != nil {
		s.log.WithError(err).Warn("teardown ran without the executor")
	}
	s.g.Conns.Remove(s)
	s.g.Metrics.Closed(s.t.Kind())
	s.log.Info("Disconnected.")
	close(s.done)
}

func (s *Session) unbind() {
	p := s.player
	s.player = nil
	if p == nil || p.Account == nil {
		return
	}
	if p.Account.Conn == gamedb.Conn(s) {
		p.Account.Conn = nil
		p.OnDisconnected()
		s.emit(events.EvDisconnect, p)
	}
}

func (s *Session) emit(t events.EventType, p *gamedb.Object) {
	s.g.Events.Emit(events.Event{
		Type:      t,
		Player:    p,
		Session:   s.ID,
		Host:      s.Host(),
		Transport: s.t.Kind(),
	})
}

// Send queues a line of output. It never blocks: a client that cannot
// keep up with its output is disconnected.
func (s *Session) Send(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- line:
	default:
		s.log.Warn("output backlog full, disconnecting")
		s.closed = true
		close(s.out)
	}
}

// Disconnect flushes queued output and closes the transport.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// sendAndClose sends a final line then disconnects.
func (s *Session) sendAndClose(line string) {
	s.Send(line)
	s.Disconnect()
}

// Read routes the next line to fn. Must run on the executor.
func (s *Session) Read(fn func(line string) error, prompt string) {
	if prompt != "" {
		s.Send(prompt)
	}
	s.readFn = fn
	s.State = Reading
}

// Host is the resolved remote hostname, or the raw address.
func (s *Session) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname
}

// Transport is the kind of transport the session runs over.
func (s *Session) Transport() string { return s.t.Kind() }

// Player returns the bound player. Must run on the executor.
func (s *Session) Player() *gamedb.Object { return s.player }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
