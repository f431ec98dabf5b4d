package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/littlemud/littlemud/pkg/boltstore"
	"github.com/littlemud/littlemud/pkg/events"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
)

// Game is the process-wide context: the world, its persistence, the live
// sessions and the command table. Everything that touches the world runs
// as a job on Exec.
type Game struct {
	DB       *gamedb.Database
	Store    *boltstore.Store // nil when running without a dump file
	Exec     *Executor
	Conns    *ConnManager
	Commands *Registry
	Metrics  *Metrics
	Events   *events.Bus // session lifecycle; subscribers run on Exec
	Started  time.Time

	// LookupHost resolves hostnames for @ban and @unban.
	LookupHost func(ctx context.Context, host string) ([]string, error)
	// LookupAddr resolves session addresses to hostnames.
	LookupAddr func(ctx context.Context, addr string) ([]string, error)

	confMu sync.RWMutex
	conf   GameConf
	banner string

	// Shutdown scheduling, owned by the executor.
	shutdown     *pendingShutdown
	shutdownUnit time.Duration

	stopOnce sync.Once
	stopping chan struct{}
}

// NewGame builds a game around an already loaded world.
func NewGame(db *gamedb.Database, store *boltstore.Store, conf GameConf) *Game {
	g := &Game{
		DB:           db,
		Store:        store,
		Exec:         NewExecutor(1024),
		Conns:        NewConnManager(),
		Commands:     NewRegistry(),
		Events:       events.NewBus(),
		Started:      time.Now(),
		LookupHost:   net.DefaultResolver.LookupHost,
		LookupAddr:   net.DefaultResolver.LookupAddr,
		conf:         conf,
		shutdownUnit: time.Second,
		stopping:     make(chan struct{}),
	}
	g.Metrics = NewMetrics(g)
	g.Events.Subscribe(events.SubscriberFunc(g.Metrics.Receive))
	g.Events.Subscribe(events.SubscriberFunc(g.monitor))
	g.loadBanner()
	RegisterBuiltins(g)
	RegisterAdminCommands(g)
	return g
}

// Options returns a copy of the current process options.
func (g *Game) Options() GameConf {
	g.confMu.RLock()
	defer g.confMu.RUnlock()
	return g.conf
}

// UpdateOptions changes the process options in place.
func (g *Game) UpdateOptions(fn func(*GameConf)) {
	g.confMu.Lock()
	defer g.confMu.Unlock()
	fn(&g.conf)
}

// Banner is the optional text sent after the welcome line.
func (g *Game) Banner() string {
	g.confMu.RLock()
	defer g.confMu.RUnlock()
	return g.banner
}

func (g *Game) loadBanner() {
	path := g.Options().LoginBannerFile
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Log.WithError(err).Warnf("login banner %s could not be read", path)
		return
	}
	g.confMu.Lock()
	g.banner = strings.TrimRight(string(data), "\r\n")
	g.confMu.Unlock()
}

// IsBanned reports whether host is on the banned_hosts list.
func (g *Game) IsBanned(host string) bool {
	return g.DB.Settings.ContainsString("banned_hosts", host)
}

// Uptime is the time since the game was created.
func (g *Game) Uptime() time.Duration {
	return time.Since(g.Started)
}

// ServerName is the configured server name with the engine version.
func (g *Game) ServerName() string {
	return fmt.Sprintf("%s (version %s)", g.DB.Settings.GetString("server_name"), Version)
}

// NotifyWizards tells every connected wizard. Must run on the executor.
func (g *Game) NotifyWizards(msg string) {
	g.DB.NotifyPlayers(msg, gamedb.Wizard)
}

// monitor tells connected wizards about other players coming and going.
func (g *Game) monitor(ev events.Event) {
	p := ev.Player
	if p == nil {
		return
	}
	var msg string
	switch ev.Type {
	case events.EvConnect:
		msg = fmt.Sprintf("GAME: %s has connected from %s.", p.Title(), ev.Host)
	case events.EvDisconnect:
		msg = fmt.Sprintf("GAME: %s has disconnected.", p.Title())
	default:
		return
	}
	for _, w := range g.DB.Players() {
		if w != p && w.Access() >= gamedb.Wizard {
			w.Notify(msg)
		}
	}
}

// Broadcast tells every connected player. Must run on the executor.
func (g *Game) Broadcast(msg string) {
	g.DB.NotifyPlayers(msg, gamedb.Normal)
}

// Dump writes the world to the store. Must run on the executor.
func (g *Game) Dump() (int, error) {
	if g.Store == nil {
		return 0, fmt.Errorf("no dump file is configured")
	}
	return g.Store.Dump(g.DB)
}

// Stop asks the server to shut down. It may be called any number of times.
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stopping) })
}

// Stopping is closed once Stop has been called.
func (g *Game) Stopping() <-chan struct{} {
	return g.stopping
}

// StartAutoSave dumps the world every interval until ctx is done.
func (g *Game) StartAutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 || g.Store == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := g.Exec.Go(func() {
					if _, err := g.Dump(); err != nil {
						logger.Log.WithError(err).Error("autosave failed")
						g.NotifyWizards("GAME: Autosave failed. See log for details.")
					}
				})
				if err != nil {
					return
				}
			}
		}
	}()
	logger.Log.Infof("Autosave every %s.", interval)
}
