package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
)

// RegisterBuiltins adds the everyday commands to g's registry.
func RegisterBuiltins(g *Game) {
	r := g.Commands

	r.MustRegister(`@?quit`, Command{
		Names:   []string{"quit", "@quit"},
		Doc:     "Disconnect from the server.\n\nSynopsis:\n  quit\n  @quit",
		Handler: cmdQuit,
	})
	r.MustRegister(`@?commands`, Command{
		Names:   []string{"commands", "@commands"},
		Doc:     "Lists all commands.\n\nSynopsis:\n  commands\n  @commands",
		Handler: cmdCommands,
	})
	r.MustRegister(`(?:look|l)(?:\s+(.+))?`, Command{
		Names:   []string{"look", "l"},
		Doc:     "Look at your surroundings or at something nearby.\n\nSynopsis:\n  look [thing]\n  l [thing]",
		Handler: cmdLook,
	})
	r.MustRegister(`(say|"|')[ ]?([^$]*)`, Command{
		Names:   []string{"say", `"`, "'"},
		Doc:     "Speak some text.\n\nSynopsis:\n  say <text>\n  \"<text>\n  '<text>\n\nSpeaks <text> to everyone in the same room.",
		Handler: cmdSay,
	})
	r.MustRegister(`(?:shout|!)[ ]?(.*)`, Command{
		Names:   []string{"shout", "!"},
		Doc:     "Shout some text to everyone connected.\n\nSynopsis:\n  shout <text>\n  !<text>",
		Handler: cmdShout,
	})
	r.MustRegister(`\.(.*)`, Command{
		Names:   []string{"."},
		Doc:     "Repeat your previous command, adding any text given.\n\nSynopsis:\n  .[text]",
		Handler: cmdRepeat,
	})
	r.MustRegister(`@?who`, Command{
		Names:   []string{"who", "@who"},
		Doc:     "Show who is connected.\n\nSynopsis:\n  who\n  @who",
		Handler: cmdWho,
	})
	r.MustRegister(`@uptime`, Command{
		Names:   []string{"@uptime"},
		Doc:     "Show how long the server has been running.\n\nSynopsis:\n  @uptime",
		Handler: cmdUptime,
	})
	r.MustRegister(`@password`, Command{
		Names:   []string{"@password"},
		Doc:     "Change your password.\n\nSynopsis:\n  @password",
		Handler: cmdPassword,
	})
	r.MustRegister(`@info`, Command{
		Names:   []string{"@info"},
		Access:  gamedb.Builder,
		Doc:     "Show process and host diagnostics.\n\nSynopsis:\n  @info",
		Handler: cmdInfo,
	})
	r.MustRegister(`@fault`, Command{
		Names:   []string{"@fault"},
		Access:  gamedb.Programmer,
		Doc:     "Raise an error inside a command, for debugging.\n\nSynopsis:\n  @fault",
		Handler: cmdFault,
	})
}

func cmdQuit(c *CommandContext) (bool, error) {
	c.Notify(c.Game.DB.Settings.GetString("disconnect_msg"))
	if conn := c.Player.Account.Conn; conn != nil {
		conn.Disconnect()
	}
	return true, nil
}

func cmdCommands(c *CommandContext) (bool, error) {
	c.Notify("Commands listing:")
	cmds := c.Game.Commands.Permitted(c.Player.Access())
	for _, cmd := range cmds {
		c.Notifyf("%s: %s", capitalize(englishList(cmd.Names, "or")), cmd.Summary())
	}
	c.Notifyf("Commands: %d.", len(cmds))
	return true, nil
}

func cmdLook(c *CommandContext) (bool, error) {
	p := c.Player
	text := strings.TrimSpace(c.Arg(0))
	if text == "" {
		p.Look(nil)
		showContents(p, p.Location)
		return true, nil
	}

	var candidates []*gamedb.Object
	candidates = append(candidates, p.Contents...)
	if loc := p.Location; loc != nil {
		candidates = append(candidates, loc.Contents...)
		if loc.Room != nil {
			candidates = append(candidates, loc.Room.Extras...)
		}
	}
	matches := gamedb.Match(text, candidates)
	if len(matches) == 0 {
		c.Notify("I don't see that here.")
		return true, nil
	}
	p.Look(matches[0])
	showContents(p, matches[0])
	return true, nil
}

func showContents(p, container *gamedb.Object) {
	if container == nil {
		return
	}
	var names []string
	for _, o := range container.Contents {
		if o != p {
			names = append(names, o.Title())
		}
	}
	if len(names) > 0 {
		p.Notify(fmt.Sprintf("You see %s.", englishList(names, "and")))
	}
}

func cmdSay(c *CommandContext) (bool, error) {
	p := c.Player
	text := c.Arg(1)
	loc := p.Location
	if loc == nil {
		c.Notify("You cannot speak here.")
		return true, nil
	}
	if text != "" {
		c.Notifyf(`You say, "%s"`, text)
		loc.Announce(fmt.Sprintf(`%s says, "%s"`, p.Title(), text), p)
		return true, nil
	}
	his := gamedb.Neutral.His
	if p.Mobile != nil && p.Mobile.Gender != nil {
		his = p.Mobile.Gender.His
	}
	c.Notify("You say nothing, good job.")
	loc.Announce(fmt.Sprintf("%s opens %s mouth and shuts it again.", p.Title(), his), p)
	return true, nil
}

func cmdShout(c *CommandContext) (bool, error) {
	text := strings.TrimSpace(c.Arg(0))
	if text == "" {
		return false, nil
	}
	p := c.Player
	c.Notifyf(`You shout, "%s"`, text)
	msg := fmt.Sprintf(`%s shouts, "%s"`, p.Title(), text)
	for _, other := range c.Game.DB.Connected() {
		if other != p {
			other.Notify(msg)
		}
	}
	return true, nil
}

func cmdRepeat(c *CommandContext) (bool, error) {
	// Back(0) is the line that invoked this command.
	prev, ok := c.Player.Account.History.Back(1)
	if !ok {
		c.Notify("There is no previous command to repeat.")
		return true, nil
	}
	if strings.HasPrefix(prev, ".") {
		c.Notify("You cannot repeat a repeat.")
		return true, nil
	}
	c.Game.run(c.Player, prev+c.Arg(0))
	return true, nil
}

func cmdWho(c *CommandContext) (bool, error) {
	wizard := c.Player.Access() >= gamedb.Wizard
	now := time.Now()
	players, anonymous := 0, 0
	c.Notify("Connected players:")
	for _, s := range c.Game.Conns.All() {
		p := s.Player()
		if p == nil || p.Account.Conn != gamedb.Conn(s) {
			anonymous++
			continue
		}
		players++
		line := fmt.Sprintf("%s, connected %s", p.Title(), humanize.RelTime(s.Connected, now, "ago", "from now"))
		if wizard {
			line += fmt.Sprintf(" from %s [%s, %s]", s.Host(), s.Transport(), s.ID[:8])
		}
		c.Notify(line + ".")
	}
	c.Notifyf("Players connected: %d.", players)
	if wizard && anonymous > 0 {
		c.Notifyf("Sessions not logged in: %d.", anonymous)
	}
	return true, nil
}

func cmdUptime(c *CommandContext) (bool, error) {
	g := c.Game
	c.Notifyf("%s has been up since %s (%s).", g.ServerName(),
		g.Started.Format(time.ANSIC), humanize.Time(g.Started))
	return true, nil
}

func cmdPassword(c *CommandContext) (bool, error) {
	p := c.Player
	p.Read(func(old string) error {
		if !p.Authenticate(p.Account.UID, old) {
			p.Notify("Incorrect password.")
			return nil
		}
		p.Read(func(first string) error {
			if first == "" {
				p.Notify("Passwords must not be blank.")
				return nil
			}
			p.Read(func(second string) error {
				if first != second {
					p.Notify("Passwords do not match.")
					return nil
				}
				if err := p.SetPassword(first); err != nil {
					return err
				}
				logger.Log.Infof("%s changed their password.", p.Title())
				p.Notify("Password changed.")
				return nil
			}, "Retype new password:")
			return nil
		}, "New password:")
		return nil
	}, "Old password:")
	return true, nil
}

func cmdInfo(c *CommandContext) (bool, error) {
	g, p := c.Game, c.Player
	started := g.Started
	c.Notify("Gathering diagnostics...")
	go func() {
		lines := sysInfo(started)
		g.Exec.Go(func() {
			p.Notify(fmt.Sprintf("%s diagnostics:", g.ServerName()))
			for _, l := range lines {
				p.Notify(l)
			}
			p.Notify(fmt.Sprintf("World: %s %s, %s %s, %d %s connected.",
				humanize.Comma(int64(g.DB.Len())), plural(g.DB.Len(), "object"),
				humanize.Comma(int64(len(g.DB.Players()))), plural(len(g.DB.Players()), "player"),
				g.Conns.Count(), plural(g.Conns.Count(), "session")))
		})
	}()
	return true, nil
}

func cmdFault(c *CommandContext) (bool, error) {
	return false, fmt.Errorf("deliberate fault requested by %s", c.Player.Title())
}
