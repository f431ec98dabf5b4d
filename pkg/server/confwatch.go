package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/littlemud/littlemud/pkg/logger"
)

// WatchConfig watches the options file and the login banner. A changed
// banner is reloaded. A changed options file has its hot-reloadable keys
// (log_commands, log_level, max_connections) applied; anything else needs
// a restart. Connected wizards are told either way.
func (g *Game) WatchConfig(ctx context.Context) {
	opts := g.Options()
	tracked := map[string]string{}
	if opts.Path != "" {
		if abs, err := filepath.Abs(opts.Path); err == nil {
			tracked[abs] = "options"
		}
	}
	if opts.LoginBannerFile != "" {
		if abs, err := filepath.Abs(opts.LoginBannerFile); err == nil {
			tracked[abs] = "banner"
		}
	}
	if len(tracked) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.WithError(err).Warn("could not start config watcher")
		return
	}

	// Watch directories so that editors which replace files are seen.
	dirs := map[string]bool{}
	for path := range tracked {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.Log.WithError(err).Warnf("could not watch %s", dir)
			continue
		}
		dirs[dir] = true
	}
	if len(dirs) == 0 {
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				abs, err := filepath.Abs(event.Name)
				if err != nil {
					continue
				}
				switch tracked[abs] {
				case "options":
					g.reloadOptions(abs)
				case "banner":
					g.loadBanner()
					logger.Log.Infof("Login banner reloaded from %s.", abs)
					g.Exec.Go(func() {
						g.NotifyWizards("GAME: Login banner reloaded from disk.")
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.WithError(err).Warn("config watcher error")
			}
		}
	}()
	logger.Log.Infof("Watching %d config %s for changes.", len(tracked), plural(len(tracked), "file"))
}

func (g *Game) reloadOptions(path string) {
	fresh, err := LoadGameConf(path)
	if err != nil {
		logger.Log.WithError(err).Warnf("options file %s changed but could not be loaded", path)
		g.Exec.Go(func() {
			g.NotifyWizards("GAME: Options file changed on disk but could not be loaded. See log for details.")
		})
		return
	}

	var changes []string
	g.UpdateOptions(func(c *GameConf) {
		if c.LogCommands != fresh.LogCommands {
			c.LogCommands = fresh.LogCommands
			changes = append(changes, fmt.Sprintf("log_commands=%t", fresh.LogCommands))
		}
		if c.LogLevel != fresh.LogLevel {
			c.LogLevel = fresh.LogLevel
			logger.SetLevel(fresh.LogLevel)
			changes = append(changes, "log_level="+fresh.LogLevel)
		}
		if c.MaxConnections != fresh.MaxConnections {
			c.MaxConnections = fresh.MaxConnections
			changes = append(changes, fmt.Sprintf("max_connections=%d", fresh.MaxConnections))
		}
	})
	if len(changes) == 0 {
		return
	}
	msg := "GAME: Options reloaded: " + strings.Join(changes, ", ") + "."
	logger.Log.Info(msg)
	g.Exec.Go(func() { g.NotifyWizards(msg) })
}
