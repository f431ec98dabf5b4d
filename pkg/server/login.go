package server

import (
	"fmt"
	"time"

	"github.com/littlemud/littlemud/pkg/events"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/validate"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is the protocol state of a session.
type State int

const (
	Ready State = iota
	Username
	Password
	CreateUsername
	CreatePassword1
	CreatePassword2
	CreateName
	CreateSex
	Frozen
	Reading
)

var stateNames = [...]string{
	"READY", "USERNAME", "PASSWORD", "CREATE_USERNAME", "CREATE_PASSWORD_1",
	"CREATE_PASSWORD_2", "CREATE_NAME", "CREATE_SEX", "FROZEN", "READING",
}

func (st State) String() string {
	if st < 0 || int(st) >= len(stateNames) {
		return fmt.Sprintf("STATE(%d)", int(st))
	}
	return stateNames[st]
}

// Login prompts and notices.
const (
	msgUsernamePrompt    = "Username (or new):"
	msgPasswordPrompt    = "Password:"
	msgNeedUsername      = "You must provide a username."
	msgBadLogin          = "Invalid username and password combination."
	msgBanned            = "You are banned from this server."
	msgNewUsername       = "Username to log in with:"
	msgUsernameTaken     = "That username is already taken."
	msgBlankUsername     = "Usernames must not be blank."
	msgNewPassword       = "New password:"
	msgBlankPassword     = "Passwords must not be blank."
	msgRetypePassword    = "Retype password:"
	msgPasswordsDiffer   = "Passwords do not match."
	msgNewName           = "Enter a name for your new character:"
	msgNeedName          = "You must choose a name."
	msgNameTaken         = "Sorry, but that name is already taken."
	msgChooseSex         = "Choose a sex for your new character:"
	msgTypeNumber        = "Type a number:"
	msgFrozen            = "You are totally frozen."
	msgReadFailed        = "An error was raised while passing the line to the target function. See log for details."
	msgUnknownState      = "Sorry, but an unknown error occurred. Please log in again."
	msgConnectionLimit   = "Sorry but the connection limit has been exceeded."
	msgAutoLoginFailed   = "Sorry, autologin failed."
	msgCreatingFirstUser = "Creating initial user."
)

var sexChoices = []*gamedb.Gender{gamedb.Male, gamedb.Female}

// titleCase builds a fresh caser each time; casers keep state.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// connected runs once, when the session starts.
func (s *Session) connected() {
	opts := s.g.Options()
	if opts.AutoLogin != "" {
		if p := s.g.DB.PlayerByUID(opts.AutoLogin); p != nil {
			s.log.Warnf("Automatically authenticating as %s.", p.Title())
			s.Send(fmt.Sprintf("Automatically authenticating you as %s.", p.Title()))
			s.postLogin(p)
			return
		}
		s.log.Errorf("Cannot find user %s in the database.", opts.AutoLogin)
		s.sendAndClose(msgAutoLoginFailed)
		return
	}

	s.Send(fmt.Sprintf("Welcome to %s.", s.g.DB.Settings.GetString("server_name")))
	if banner := s.g.Banner(); banner != "" {
		s.Send(banner)
	}
	if opts.MaxConnections > 0 && s.g.Conns.Count() > opts.MaxConnections {
		s.log.Warn("Booting because connection limit exceeded.")
		s.g.Metrics.Rejected("limit")
		s.sendAndClose(msgConnectionLimit)
		return
	}
	if len(s.g.DB.Players()) > 0 {
		s.getUsername()
	} else {
		s.Send(msgCreatingFirstUser)
		s.createUsername()
	}
	s.resetTimeout()
}

// handleLine advances the state machine by one input line.
func (s *Session) handleLine(line string) {
	switch s.State {
	case Frozen:
		s.Send(msgFrozen)
		s.log.Infof("attempted command while frozen: %s", line)
		return
	case Ready:
		if s.player != nil {
			s.g.Dispatch(s.player, line)
			return
		}
	case Reading:
		fn := s.readFn
		s.readFn = nil
		s.State = Ready
		if err := callReader(fn, line); err != nil {
			s.Send(msgReadFailed)
			s.log.WithError(err).Error("read callback failed")
		}
		return
	}

	s.resetTimeout()
	switch s.State {
	case Username:
		s.onUsername(line)
	case Password:
		s.onPassword(line)
	case CreateUsername:
		s.onCreateUsername(line)
	case CreatePassword1:
		s.onCreatePassword1(line)
	case CreatePassword2:
		s.onCreatePassword2(line)
	case CreateName:
		s.onCreateName(line)
	case CreateSex:
		s.onCreateSex(line)
	default:
		s.log.Warnf("Unknown connection state: %s.", s.State)
		s.Send(msgUnknownState)
		s.unbind()
		s.getUsername()
	}
}

func callReader(fn func(string) error, line string) (err error) {
	if fn == nil {
		return fmt.Errorf("no read callback registered")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read callback panicked: %v", r)
		}
	}()
	return fn(line)
}

func (s *Session) onUsername(line string) {
	switch line {
	case "":
		s.sendAndClose(msgNeedUsername)
	case "new":
		s.createUsername()
	default:
		s.uid = line
		s.State = Password
		s.Send(msgPasswordPrompt)
	}
}

func (s *Session) onPassword(line string) {
	for _, p := range s.g.DB.Players() {
		if !p.Authenticate(s.uid, line) {
			continue
		}
		if p.Account.Banned {
			s.log.Warnf("Banned player %s tried to log in.", p.Title())
			s.sendAndClose(msgBanned)
			return
		}
		s.log.Infof("Authenticated as %s.", p.Title())
		s.Send(fmt.Sprintf("Welcome back, %s.", p.Title()))
		if p.Account.LastConnectedTime.IsZero() {
			s.Send("This is your first login.")
		} else {
			s.Send(fmt.Sprintf("You last logged in on %s from %s.",
				p.Account.LastConnectedTime.Format(time.ANSIC), p.Account.LastConnectedHost))
		}
		s.postLogin(p)
		return
	}
	s.log.Infof("Failed to authenticate with username: %s.", s.uid)
	s.sendAndClose(msgBadLogin)
}

// reject counts a failed attempt during character creation. It reports
// whether the session was disconnected for exceeding the limit.
func (s *Session) reject(msg string) bool {
	s.tries++
	if s.tries >= s.g.DB.Settings.GetInt("max_create_retries", 5) {
		s.sendAndClose(s.g.DB.Settings.GetString("max_create_retries_exceeded"))
		return true
	}
	s.Send(msg)
	return false
}

func (s *Session) onCreateUsername(line string) {
	if line == "" {
		s.sendAndClose(msgBlankUsername)
		return
	}
	if s.g.DB.PlayerByUID(line) != nil {
		if !s.reject(msgUsernameTaken) {
			s.createUsername()
		}
		return
	}
	s.uid = line
	s.createPassword()
}

func (s *Session) onCreatePassword1(line string) {
	if line == "" {
		if !s.reject(msgBlankPassword) {
			s.createPassword()
		}
		return
	}
	s.pwd = line
	s.State = CreatePassword2
	s.Send(msgRetypePassword)
}

func (s *Session) onCreatePassword2(line string) {
	if line != s.pwd {
		s.pwd = ""
		if !s.reject(msgPasswordsDiffer) {
			s.createPassword()
		}
		return
	}
	s.createName()
}

func (s *Session) onCreateName(line string) {
	if line == "" {
		if !s.reject(msgNeedName) {
			s.createName()
		}
		return
	}
	line = titleCase(line)
	if s.g.DB.PlayerByName(line) != nil {
		if !s.reject(msgNameTaken) {
			s.createName()
		}
		return
	}
	if msg := validate.DisallowedName(line); msg != "" {
		if !s.reject(msg) {
			s.createName()
		}
		return
	}
	s.name = line
	s.createSex()
}

func (s *Session) onCreateSex(line string) {
	var gender *gamedb.Gender
	switch line {
	case "1":
		gender = gamedb.Male
	case "2":
		gender = gamedb.Female
	default:
		if !s.reject(fmt.Sprintf("Invalid input: %s. Try again.", line)) {
			s.createSex()
		}
		return
	}
	s.Send(fmt.Sprintf("You are now a %s.", gender.Sex))

	p, err := s.g.DB.NewPlayer(s.name, s.uid, s.pwd)
	if err != nil {
		s.log.WithError(err).Error("could not create player")
		s.sendAndClose(msgUnknownState)
		return
	}
	p.Mobile.Gender = gender
	s.pwd = ""
	kind := "normal"
	if p.Access() == gamedb.Wizard {
		kind = "wizard"
	}
	s.log.Infof("Created %s player: %s.", kind, p.Title())
	if err := p.Move(s.g.DB.StartRoom()); err != nil {
		s.log.WithError(err).Warnf("could not move %s to the start room", p.Title())
	}
	s.postLogin(p)
}

func (s *Session) getUsername() {
	s.State = Username
	s.Send(msgUsernamePrompt)
}

func (s *Session) createUsername() {
	s.Send(msgNewUsername)
	s.State = CreateUsername
}

func (s *Session) createPassword() {
	s.Send(msgNewPassword)
	s.State = CreatePassword1
}

func (s *Session) createName() {
	s.Send(msgNewName)
	s.State = CreateName
}

func (s *Session) createSex() {
	s.Send(msgChooseSex)
	for i, g := range sexChoices {
		s.Send(fmt.Sprintf("[%d] %s.", i+1, titleCase(g.Sex)))
	}
	s.Send(msgTypeNumber)
	s.State = CreateSex
}

// postLogin finishes authentication. When the player is already bound to
// another session, binding is deferred to finishHandoff, which runs
// outside the executor so that it can wait for the old session to close.
func (s *Session) postLogin(p *gamedb.Object) {
	s.tries = 0
	s.State = Ready
	s.timeout.Cancel()
	s.timeout = nil
	s.player = p

	switch old := p.Account.Conn.(type) {
	case nil:
	case *Session:
		if old != s {
			s.handoffOld, s.handoffPlayer = old, p
			return
		}
	default:
		old.Send(s.redirectMsg())
		old.Disconnect()
	}
	s.bind(p)
}

// bind attaches p to this session and greets it.
func (s *Session) bind(p *gamedb.Object) {
	if p.Destroyed() {
		s.log.Warnf("%s was destroyed during login", p)
		s.sendAndClose(msgUnknownState)
		return
	}
	s.player = p
	p.Account.Conn = s
	p.Account.LastConnectedTime = time.Now()
	p.Account.LastConnectedHost = s.Host()
	s.log.WithField("player", p.Title()).Info("Logged in.")
	p.Notify(s.g.DB.Settings.GetString("connect_msg"))
	p.OnConnected()
	s.emit(events.EvConnect, p)
}

// resetTimeout restarts the login timer.
func (s *Session) resetTimeout() {
	s.timeout.Cancel()
	seconds := s.g.DB.Settings.GetInt("login_timeout", 60)
	if seconds <= 0 {
		s.timeout = nil
		return
	}
	var t *Timer
	t = AfterFunc(time.Duration(seconds)*time.Second, func() {
		s.g.Exec.Go(func() {
			if s.timeout != t {
				return
			}
			s.timeout = nil
			if s.player == nil {
				s.log.Info("Timed out.")
				s.sendAndClose(s.g.DB.Settings.GetString("timeout_msg"))
			}
		})
	})
	s.timeout = t
}
