package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/littlemud/littlemud/pkg/validate"
	"gopkg.in/yaml.v3"
)

const lookupTimeout = 5 * time.Second

// RegisterAdminCommands adds the wizard commands to g's registry.
func RegisterAdminCommands(g *Game) {
	r := g.Commands

	r.MustRegister(`@shutdown(?:\s+(\d+))?(?:\s+(.+))?`, Command{
		Names:   []string{"@shutdown"},
		Access:  gamedb.Wizard,
		Doc:     "Shut the server down after a delay.\n\nSynopsis:\n  @shutdown [seconds] [reason]\n\nEveryone is warned five seconds before the server stops.",
		Handler: cmdShutdown,
	})
	r.MustRegister(`@abort-shutdown`, Command{
		Names:   []string{"@abort-shutdown"},
		Access:  gamedb.Wizard,
		Doc:     "Cancel a pending shutdown.\n\nSynopsis:\n  @abort-shutdown",
		Handler: cmdAbortShutdown,
	})
	r.MustRegister(`@ban\s+(\S+)`, Command{
		Names:   []string{"@ban"},
		Access:  gamedb.Wizard,
		Doc:     "Refuse connections from a host.\n\nSynopsis:\n  @ban <host>",
		Handler: cmdBan,
	})
	r.MustRegister(`@unban\s+(\S+)`, Command{
		Names:   []string{"@unban"},
		Access:  gamedb.Wizard,
		Doc:     "Allow connections from a banned host again.\n\nSynopsis:\n  @unban <host>",
		Handler: cmdUnban,
	})
	r.MustRegister(`@banned`, Command{
		Names:   []string{"@banned"},
		Access:  gamedb.Wizard,
		Doc:     "List banned hosts.\n\nSynopsis:\n  @banned",
		Handler: cmdBanned,
	})
	r.MustRegister(`@config(?:\s+(\S+)(?:\s+(.+))?)?`, Command{
		Names:   []string{"@config"},
		Access:  gamedb.Wizard,
		Doc:     "View or change server configuration.\n\nSynopsis:\n  @config\n  @config <key>\n  @config <key> <value>\n  @config <key> !clear\n\nValues are read as YAML, so numbers, booleans and [lists] keep their type.",
		Handler: cmdConfig,
	})
	r.MustRegister(`@dump`, Command{
		Names:   []string{"@dump"},
		Access:  gamedb.Wizard,
		Doc:     "Write the world to the dump file now.\n\nSynopsis:\n  @dump",
		Handler: cmdDump,
	})
	r.MustRegister(`@backup`, Command{
		Names:   []string{"@backup"},
		Access:  gamedb.Wizard,
		Doc:     "Write a compressed copy of the dump file to the backup directory.\n\nSynopsis:\n  @backup",
		Handler: cmdBackup,
	})
	r.MustRegister(`@check(?:\s+(fix))?`, Command{
		Names:   []string{"@check"},
		Access:  gamedb.Wizard,
		Doc:     "Check the world for containment problems.\n\nSynopsis:\n  @check\n  @check fix",
		Handler: cmdCheck,
	})
}

func cmdShutdown(c *CommandContext) (bool, error) {
	g, p := c.Game, c.Player
	if _, pending := g.ShutdownPending(); pending {
		c.Notify("A shutdown is already pending. Use @abort-shutdown to cancel it.")
		return true, nil
	}
	delay := 0
	if c.Arg(0) != "" {
		n, err := strconv.Atoi(c.Arg(0))
		if err != nil {
			c.Notifyf("Invalid delay: %s.", c.Arg(0))
			return true, nil
		}
		delay = n
	}
	reason := strings.TrimSpace(c.Arg(1))
	if reason == "" {
		reason = "No reason given"
	}

	p.Read(func(answer string) error {
		if !yesOrNo(answer) {
			p.Notify("Shutdown cancelled.")
			return nil
		}
		if err := g.ScheduleShutdown(delay, reason, p); err != nil {
			if errors.Is(err, ErrShutdownPending) {
				p.Notify("A shutdown is already pending. Use @abort-shutdown to cancel it.")
				return nil
			}
			return err
		}
		return nil
	}, fmt.Sprintf("Really shut the server down in %d %s? (y/n)", delay, plural(delay, "second")))
	return true, nil
}

func cmdAbortShutdown(c *CommandContext) (bool, error) {
	if !c.Game.AbortShutdown(c.Player) {
		c.Notify("There is no pending shutdown.")
	}
	return true, nil
}

// resolveHosts returns host together with every address it resolves to.
func (g *Game) resolveHosts(host string) []string {
	hosts := []string{host}
	if g.LookupHost == nil {
		return hosts
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	addrs, err := g.LookupHost(ctx, host)
	if err != nil {
		logger.Log.WithError(err).Debugf("could not resolve %s", host)
		return hosts
	}
	for _, a := range addrs {
		if !slices.Contains(hosts, a) {
			hosts = append(hosts, a)
		}
	}
	return hosts
}

// cmdBan resolves the host off the executor, then updates the ban list in
// a fresh job.
func cmdBan(c *CommandContext) (bool, error) {
	g, p, host := c.Game, c.Player, c.Arg(0)
	c.Notifyf("Resolving %s...", host)
	go func() {
		hosts := g.resolveHosts(host)
		g.Exec.Go(func() {
			banned := g.DB.Settings.GetStrings("banned_hosts")
			var added []string
			for _, h := range hosts {
				if !slices.Contains(banned, h) {
					banned = append(banned, h)
					added = append(added, h)
				}
			}
			if len(added) == 0 {
				p.Notify(fmt.Sprintf("%s is already banned.", host))
				return
			}
			g.DB.Settings.Set("banned_hosts", banned)
			logger.Log.Warnf("%s banned %s.", p.Title(), strings.Join(added, ", "))
			p.Notify(fmt.Sprintf("Banned %s.", englishList(added, "and")))
		})
	}()
	return true, nil
}

func cmdUnban(c *CommandContext) (bool, error) {
	g, p, host := c.Game, c.Player, c.Arg(0)
	c.Notifyf("Resolving %s...", host)
	go func() {
		hosts := g.resolveHosts(host)
		g.Exec.Go(func() {
			banned := g.DB.Settings.GetStrings("banned_hosts")
			var removed []string
			banned = slices.DeleteFunc(banned, func(h string) bool {
				if slices.Contains(hosts, h) {
					removed = append(removed, h)
					return true
				}
				return false
			})
			if len(removed) == 0 {
				p.Notify(fmt.Sprintf("%s is not banned.", host))
				return
			}
			g.DB.Settings.Set("banned_hosts", banned)
			logger.Log.Warnf("%s unbanned %s.", p.Title(), strings.Join(removed, ", "))
			p.Notify(fmt.Sprintf("Unbanned %s.", englishList(removed, "and")))
		})
	}()
	return true, nil
}

func cmdBanned(c *CommandContext) (bool, error) {
	banned := c.Game.DB.Settings.GetStrings("banned_hosts")
	if len(banned) == 0 {
		c.Notify("No hosts are banned.")
		return true, nil
	}
	c.Notify("Banned hosts:")
	for _, h := range banned {
		c.Notify(h)
	}
	c.Notifyf("Total: %d.", len(banned))
	return true, nil
}

func cmdConfig(c *CommandContext) (bool, error) {
	settings := c.Game.DB.Settings
	key, raw := c.Arg(0), strings.TrimSpace(c.Arg(1))
	switch {
	case key == "":
		for _, k := range settings.Keys() {
			v, _ := settings.Get(k)
			c.Notifyf("%s: %s", k, formatSetting(v))
		}
	case raw == "":
		v, ok := settings.Get(key)
		if !ok {
			c.Notifyf("%s is not set.", key)
			return true, nil
		}
		c.Notifyf("%s: %s", key, formatSetting(v))
	case raw == "!clear":
		settings.Clear(key)
		logger.Log.Infof("%s cleared server setting %s.", c.Player.Title(), key)
		c.Notifyf("Cleared %s.", key)
	default:
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			c.Notifyf("Could not read that value: %s", err)
			return true, nil
		}
		settings.Set(key, v)
		logger.Log.Infof("%s set server setting %s to %s.", c.Player.Title(), key, formatSetting(v))
		c.Notifyf("Set %s to %s.", key, formatSetting(v))
	}
	return true, nil
}

func formatSetting(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	}
	return fmt.Sprint(v)
}

func cmdDump(c *CommandContext) (bool, error) {
	n, err := c.Game.Dump()
	if err != nil {
		return false, err
	}
	logger.Log.Infof("%s dumped the world.", c.Player.Title())
	c.Notifyf("Dumped %s %s.", humanize.Comma(int64(n)), plural(n, "object"))
	return true, nil
}

// cmdBackup copies the dump file off the executor. The copy is a bbolt
// read transaction, so the world keeps running meanwhile.
func cmdBackup(c *CommandContext) (bool, error) {
	g, p := c.Game, c.Player
	if g.Store == nil {
		c.Notify("No dump file is configured.")
		return true, nil
	}
	dir := g.Options().BackupDir
	c.Notify("Writing backup...")
	go func() {
		path, err := g.Store.Backup(dir)
		var size int64
		if err == nil {
			if fi, statErr := os.Stat(path); statErr == nil {
				size = fi.Size()
			}
		}
		g.Exec.Go(func() {
			if err != nil {
				logger.Log.WithError(err).Error("backup failed")
				p.Notify("Backup failed. See log for details.")
				return
			}
			logger.Log.Infof("%s wrote backup %s.", p.Title(), path)
			p.Notify(fmt.Sprintf("Backup written to %s (%s).", path, humanize.IBytes(uint64(size))))
		})
	}()
	return true, nil
}

func cmdCheck(c *CommandContext) (bool, error) {
	findings := validate.Run(c.Game.DB, &validate.IntegrityChecker{})
	fixed := 0
	if c.Arg(0) == "fix" {
		fixed = validate.Fix(findings)
		if fixed > 0 {
			logger.Log.Warnf("%s repaired %d containment %s.", c.Player.Title(), fixed, plural(fixed, "problem"))
		}
	}
	for _, line := range validate.GenerateReport(findings, fixed).Lines() {
		c.Notify(line)
	}
	return true, nil
}
