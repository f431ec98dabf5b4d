package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/littlemud/littlemud/pkg/logger"
	"golang.org/x/text/encoding"
)

const drainTimeout = 5 * time.Second

// Server accepts connections for a game and runs it until shutdown.
type Server struct {
	Game *Game

	listener net.Listener
	http     *http.Server
	httpLn   net.Listener
	enc      encoding.Encoding
	sessions sync.WaitGroup
}

// NewServer creates a server for game.
func NewServer(game *Game) *Server {
	return &Server{Game: game}
}

// Listen opens the line listener, and the HTTP listener when http_addr is
// set. The world must already be loaded.
func (s *Server) Listen() error {
	opts := s.Game.Options()
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}
	s.enc = enc

	ln, err := net.Listen("tcp", opts.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.ListenAddr(), err)
	}
	s.listener = ln
	logger.Log.Infof("Max connections allowed: %d.", opts.MaxConnections)
	logger.Log.Infof("Now listening for connections on %s.", ln.Addr())

	if opts.HTTPAddr != "" {
		hln, err := net.Listen("tcp", opts.HTTPAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen on %s: %w", opts.HTTPAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.Game.Metrics.Handler())
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		s.httpLn = hln
		logger.Log.Infof("HTTP (metrics, websocket) on %s.", hln.Addr())
	}
	return nil
}

// Addr is the address of the line listener.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr is the address of the HTTP listener, or nil.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Serve runs the game until ctx is cancelled or Game.Stop is called. On
// the way out every session is told and closed, then the world is dumped.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	g := s.Game
	go g.Exec.Run(context.Background())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.StartAutoSave(runCtx, g.Options().Autosave())
	g.WatchConfig(runCtx)

	if s.http != nil {
		go func() {
			if err := s.http.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.WithError(err).Error("HTTP server failed")
			}
		}()
	}

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		s.acceptLoop(s.listener)
	}()

	select {
	case <-ctx.Done():
	case <-g.Stopping():
	}
	cancel()
	return s.shutdown(acceptDone)
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Log.WithError(err).Warn("accept failed")
			continue
		}
		host := hostOf(conn.RemoteAddr().String())
		if s.Game.IsBanned(host) {
			logger.Log.Warnf("Blocked incoming connection from %s.", conn.RemoteAddr())
			s.Game.Metrics.Rejected("banned")
			conn.Close()
			continue
		}
		logger.Log.Infof("Incoming connection from %s.", conn.RemoteAddr())
		s.startSession(newTCPTransport(conn, s.enc))
	}
}

func (s *Server) startSession(t Transport) {
	sess := newSession(s.Game, t)
	s.Game.Conns.Add(sess)
	s.Game.Metrics.Accepted(t.Kind())
	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		sess.Serve()
	}()
}

func (s *Server) shutdown(acceptDone <-chan struct{}) error {
	g := s.Game
	s.listener.Close()
	<-acceptDone
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		s.http.Shutdown(ctx)
		cancel()
	}

	sessions := g.Conns.All()
	if len(sessions) > 0 {
		logger.Log.Info("Closing connections...")
	} else {
		logger.Log.Info("No connections to close.")
	}
	g.Exec.Do(func() {
		g.cancelShutdownTimers()
		msg := g.DB.Settings.GetString("disconnect_msg")
		for _, sess := range sessions {
			sess.sendAndClose(msg)
		}
	})

	waited := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(drainTimeout):
		logger.Log.Warn("some sessions did not close in time")
	}

	var dumpErr error
	if g.Store != nil {
		if err := g.Exec.Do(func() { _, dumpErr = g.Dump() }); err != nil {
			dumpErr = err
		}
	}
	g.Exec.Stop()
	<-g.Exec.Done()
	if dumpErr != nil {
		return fmt.Errorf("dump on shutdown: %w", dumpErr)
	}
	logger.Log.Info("Server shutting down.")
	return nil
}
