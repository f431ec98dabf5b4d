package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
)

// shutdownWarning is how many units before a scheduled stop the warning
// goes out.
const shutdownWarning = 5

// ErrShutdownPending is returned when a shutdown is already scheduled.
var ErrShutdownPending = errors.New("a shutdown is already pending")

type pendingShutdown struct {
	warn   *Timer
	stop   *Timer
	reason string
	at     time.Time
}

// ScheduleShutdown arranges for the server to stop after delay units
// (seconds outside tests). Everyone connected is warned shortly before.
// Must run on the executor.
func (g *Game) ScheduleShutdown(delay int, reason string, by *gamedb.Object) error {
	if g.shutdown != nil {
		return ErrShutdownPending
	}
	if delay < 0 {
		delay = 0
	}
	unit := g.shutdownUnit
	ps := &pendingShutdown{
		reason: reason,
		at:     time.Now().Add(time.Duration(delay) * unit),
	}
	g.shutdown = ps

	who := "The server"
	if by != nil {
		who = by.Title()
	}
	logger.Log.Warnf("%s scheduled a shutdown in %d seconds: %s", who, delay, reason)
	g.Broadcast(fmt.Sprintf("*** %s has scheduled a server shutdown in %d %s: %s. ***",
		who, delay, plural(delay, "second"), reason))

	lead := min(delay, shutdownWarning)
	ps.warn = AfterFunc(time.Duration(delay-lead)*unit, func() {
		g.Exec.Go(func() {
			if g.shutdown != ps {
				return
			}
			g.Broadcast(fmt.Sprintf("*** The server will shut down in %d %s: %s. ***",
				lead, plural(lead, "second"), reason))
		})
	})
	ps.stop = AfterFunc(time.Duration(delay)*unit, func() {
		g.Exec.Go(func() {
			if g.shutdown != ps {
				return
			}
			g.shutdown = nil
			logger.Log.Warnf("Shutting down: %s", reason)
			g.Broadcast(fmt.Sprintf("*** The server is shutting down: %s. ***", reason))
			g.Stop()
		})
	})
	return nil
}

// AbortShutdown cancels a pending shutdown. It reports whether there was
// one. Must run on the executor.
func (g *Game) AbortShutdown(by *gamedb.Object) bool {
	ps := g.shutdown
	if ps == nil {
		return false
	}
	g.shutdown = nil
	ps.warn.Cancel()
	ps.stop.Cancel()

	who := "The server"
	if by != nil {
		who = by.Title()
	}
	logger.Log.Warnf("%s aborted the pending shutdown", who)
	g.Broadcast(fmt.Sprintf("*** %s has aborted the pending server shutdown. ***", who))
	return true
}

// ShutdownPending reports whether a shutdown is scheduled, and when.
// Must run on the executor.
func (g *Game) ShutdownPending() (time.Time, bool) {
	if g.shutdown == nil {
		return time.Time{}, false
	}
	return g.shutdown.at, true
}

// cancelShutdownTimers quietly drops a pending shutdown. Used once the
// server is stopping anyway.
func (g *Game) cancelShutdownTimers() {
	if ps := g.shutdown; ps != nil {
		g.shutdown = nil
		ps.warn.Cancel()
		ps.stop.Cancel()
	}
}
