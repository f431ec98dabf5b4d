package server

import (
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Registration errors.
var (
	ErrNoName    = errors.New("command has no name")
	ErrBadAccess = errors.New("command access is not a defined level")
)

// ErrHandlerFault wraps an error or panic raised by a command handler.
var ErrHandlerFault = errors.New("command handler fault")

// HandlerFunc runs a matched command. Returning false lets the next
// matching command try the line; returning an error stops dispatch.
type HandlerFunc func(c *CommandContext) (bool, error)

// Command is a handler tagged with the names it answers to and the
// access level needed to see and use it.
type Command struct {
	Names   []string
	Access  gamedb.AccessLevel
	Doc     string
	Handler HandlerFunc
}

// Summary is the first line of the documentation.
func (c Command) Summary() string {
	doc := strings.TrimSpace(c.Doc)
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		doc = doc[:i]
	}
	return strings.TrimSpace(doc)
}

// CommandContext is what a handler gets to work with.
type CommandContext struct {
	Game   *Game
	Player *gamedb.Object
	Line   string
	// Args holds the pattern's capture groups, Args[0] being the first.
	Args []string
	// Named holds the named capture groups.
	Named map[string]string
}

// Arg returns capture group i, or "" when it did not participate.
func (c *CommandContext) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Notify sends text to the invoking player verbatim.
func (c *CommandContext) Notify(text string) {
	c.Player.Notify(text)
}

// Notifyf formats a message and sends it to the invoking player.
func (c *CommandContext) Notifyf(format string, args ...any) {
	c.Player.Notify(fmt.Sprintf(format, args...))
}

type registered struct {
	pattern *regexp.Regexp
	cmd     Command
}

// Registry is the ordered command table. Commands are tried in the order
// they were registered.
type Registry struct {
	mu       sync.RWMutex
	commands []registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds cmd behind pattern. The pattern must match the whole line.
func (r *Registry) Register(pattern string, cmd Command) error {
	if len(cmd.Names) == 0 || cmd.Names[0] == "" {
		return fmt.Errorf("%w: %q", ErrNoName, pattern)
	}
	if !cmd.Access.Valid() {
		return fmt.Errorf("%w: %s has access %d", ErrBadAccess, cmd.Names[0], int(cmd.Access))
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %s has no handler", cmd.Names[0])
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd.Names[0], err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, registered{pattern: re, cmd: cmd})
	return nil
}

// MustRegister is Register for built-in commands, which are known good.
func (r *Registry) MustRegister(pattern string, cmd Command) {
	if err := r.Register(pattern, cmd); err != nil {
		panic(err)
	}
}

// Permitted returns the commands visible at access, in order.
func (r *Registry) Permitted(access gamedb.AccessLevel) []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Command
	for _, rc := range r.commands {
		if access >= rc.cmd.Access {
			out = append(out, rc.cmd)
		}
	}
	return out
}

func (r *Registry) snapshot() []registered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.commands)
}

// Dispatch runs line as a command for p. Must run on the executor.
func (g *Game) Dispatch(p *gamedb.Object, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	p.Account.History.Push(line, g.DB.Settings.GetInt("command_history_length", 100))
	g.Metrics.Dispatched()
	if g.Options().LogCommands {
		logger.Log.Infof("%s entered command: %s", p.Title(), line)
	}
	g.run(p, line)
}

// run matches line against the registry without recording it in history.
func (g *Game) run(p *gamedb.Object, line string) {
	for _, rc := range g.Commands.snapshot() {
		if p.Access() < rc.cmd.Access {
			continue
		}
		m := rc.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c := &CommandContext{
			Game:   g,
			Player: p,
			Line:   line,
			Args:   m[1:],
			Named:  map[string]string{},
		}
		for i, name := range rc.pattern.SubexpNames() {
			if name != "" {
				c.Named[name] = m[i]
			}
		}
		handled, err := runHandler(rc.cmd, c)
		if err != nil {
			g.handlerFault(rc.cmd, p, err)
			return
		}
		if handled {
			return
		}
	}

	first := strings.Fields(line)[0]
	for _, cmd := range g.Commands.Permitted(p.Access()) {
		if slices.Contains(cmd.Names, first) {
			p.Notify(fmt.Sprintf("Command not understood. Did you mean %s?", cmd.Names[0]))
			return
		}
	}
	p.Notify(fmt.Sprintf("Command %s not found. If you are having trouble finding commands and their syntax, try typing commands.", first))
}

func runHandler(cmd Command, c *CommandContext) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", ErrHandlerFault, r, debug.Stack())
		}
	}()
	handled, err = cmd.Handler(c)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrHandlerFault, err)
	}
	return handled, err
}

func (g *Game) handlerFault(cmd Command, p *gamedb.Object, err error) {
	name := cmd.Names[0]
	g.Metrics.Fault()
	p.Notify(fmt.Sprintf("While executing command %s, an error was raised. See log for details.", name))
	host := ""
	if p.Account.Conn != nil {
		host = p.Account.Conn.Host()
	}
	logger.Log.WithFields(logrus.Fields{
		"command": name,
		"player":  p.Title(),
		"host":    host,
	}).WithError(err).Errorf("While executing command %s for player %s (%s), an error was raised.", name, p.Title(), host)
}
