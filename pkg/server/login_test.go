package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/validate"
)

func TestFirstPlayerIsWizard(t *testing.T) {
	g := newTestGame(t)
	c := connect(t, g)

	c.expect("Welcome to The LittleMUD Test Server.")
	c.expect(msgCreatingFirstUser)
	c.create("root", "hunter2", "admin", "1")

	p := c.player(g)
	require.NotNil(t, p)
	assert.Equal(t, "Admin", p.Name)
	assert.Equal(t, "root", p.Account.UID)
	assert.Equal(t, gamedb.Wizard, p.Access())
	assert.Equal(t, gamedb.Male, p.Mobile.Gender)
	assert.Equal(t, g.DB.StartRoom(), p.Location)
	assert.Equal(t, gamedb.Conn(c.session), p.Account.Conn)

	c2 := connect(t, g)
	c2.expect(msgUsernamePrompt)
	c2.send("new")
	c2.create("second", "pw", "bob smith", "2")
	p2 := c2.player(g)
	assert.Equal(t, "Bob Smith", p2.Name)
	assert.Equal(t, gamedb.Normal, p2.Access())
	assert.Equal(t, gamedb.Female, p2.Mobile.Gender)
}

func TestLoginExistingPlayer(t *testing.T) {
	g := newTestGame(t)
	p := addPlayer(t, g, "Alice", "alice", "secret")

	c := connect(t, g)
	c.expect(msgUsernamePrompt)
	c.send("alice")
	c.expect(msgPasswordPrompt)
	c.send("secret")
	c.expect("Welcome back, Alice.")
	c.expect("This is your first login.")
	c.expect("*** Connected ***")

	var host string
	var last time.Time
	do(t, g, func() {
		host = p.Account.LastConnectedHost
		last = p.Account.LastConnectedTime
	})
	assert.Equal(t, "pipe", host)
	assert.False(t, last.IsZero())

	c.send("quit")
	c.expect("*** Disconnected ***")
	c.expectClosed()
	<-c.session.Done()

	var connected bool
	do(t, g, func() { connected = p.IsConnected() })
	assert.False(t, connected)

	c2 := connect(t, g)
	c2.expect(msgUsernamePrompt)
	c2.send("alice")
	c2.expect(msgPasswordPrompt)
	c2.send("secret")
	c2.expect("Welcome back, Alice.")
	c2.expectPrefix("You last logged in on ")
}

func TestLoginFailures(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")

	t.Run("wrong password", func(t *testing.T) {
		c := connect(t, g)
		c.expect(msgUsernamePrompt)
		c.send("alice")
		c.expect(msgPasswordPrompt)
		c.send("guess")
		assert.Contains(t, c.expectClosed(), msgBadLogin)
	})

	t.Run("username is case sensitive", func(t *testing.T) {
		c := connect(t, g)
		c.expect(msgUsernamePrompt)
		c.send("Alice")
		c.expect(msgPasswordPrompt)
		c.send("secret")
		assert.Contains(t, c.expectClosed(), msgBadLogin)
	})

	t.Run("blank username", func(t *testing.T) {
		c := connect(t, g)
		c.expect(msgUsernamePrompt)
		c.send("")
		assert.Contains(t, c.expectClosed(), msgNeedUsername)
	})
}

func TestBannedPlayer(t *testing.T) {
	g := newTestGame(t)
	p := addPlayer(t, g, "Alice", "alice", "secret")
	do(t, g, func() { p.Account.Banned = true })

	c := connect(t, g)
	c.expect(msgUsernamePrompt)
	c.send("alice")
	c.expect(msgPasswordPrompt)
	c.send("secret")
	assert.Contains(t, c.expectClosed(), msgBanned)
}

func TestCreationRejections(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")

	c := connect(t, g)
	c.expect(msgUsernamePrompt)
	c.send("new")
	c.expect(msgNewUsername)
	c.send("alice")
	c.expect(msgUsernameTaken)
	c.expect(msgNewUsername)
	c.send("carol")
	c.expect(msgNewPassword)
	c.send("")
	c.expect(msgBlankPassword)
	c.expect(msgNewPassword)
	c.send("one")
	c.expect(msgRetypePassword)
	c.send("two")
	c.expect(msgPasswordsDiffer)
	c.expect(msgNewPassword)
	c.send("pw")
	c.expect(msgRetypePassword)
	c.send("pw")
	c.expect(msgNewName)
	c.send("alice")
	c.expect(msgNameTaken)
	c.expect(msgNewName)
	c.send("r2d2")

	// That was the fifth rejection.
	lines := c.expectClosed()
	assert.Contains(t, lines, "Maximum number of retries exceeded. Please come again.")
	assert.NotContains(t, lines, validate.MsgCharacters)
	assert.Len(t, g.DB.Players(), 1)
}

func TestCreationInvalidSex(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")

	c := connect(t, g)
	c.expect(msgUsernamePrompt)
	c.send("new")
	c.expect(msgNewUsername)
	c.send("carol")
	c.expect(msgNewPassword)
	c.send("pw")
	c.expect(msgRetypePassword)
	c.send("pw")
	c.expect(msgNewName)
	c.send("carol")
	c.expect(msgChooseSex)
	c.expect("[1] Male.")
	c.expect("[2] Female.")
	c.expect(msgTypeNumber)
	c.send("3")
	c.expect("Invalid input: 3. Try again.")
	c.expect(msgTypeNumber)
	c.send("2")
	c.expect("You are now a female.")
	c.expect("*** Connected ***")
	assert.Equal(t, "Carol", c.player(g).Name)
}

func TestCreationRetryLimit(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")
	g.DB.Settings.Set("max_create_retries", 2)

	c := connect(t, g)
	c.expect(msgUsernamePrompt)
	c.send("new")
	c.expect(msgNewUsername)
	c.send("alice")
	c.expect(msgUsernameTaken)
	c.send("alice")
	lines := c.expectClosed()
	assert.Contains(t, lines, "Maximum number of retries exceeded. Please come again.")
	assert.NotContains(t, lines, msgUsernameTaken)
}

func TestBlankNewUsernameDisconnects(t *testing.T) {
	g := newTestGame(t)
	c := connect(t, g)
	c.expect(msgNewUsername)
	c.send("")
	assert.Contains(t, c.expectClosed(), msgBlankUsername)
}

func TestLoginTimeout(t *testing.T) {
	g := newTestGame(t)
	g.DB.Settings.Set("login_timeout", 1)

	c := connect(t, g)
	c.expect(msgNewUsername)
	assert.Contains(t, c.expectClosed(), "*** Timed out while waiting for login. ***")
}

func TestLoginTimeoutCancelledByLogin(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")
	g.DB.Settings.Set("login_timeout", 1)

	c := connect(t, g)
	c.login("alice", "secret")
	time.Sleep(1500 * time.Millisecond)
	c.send("say still here")
	c.expect(`You say, "still here"`)
}

func TestConnectionLimit(t *testing.T) {
	g := newTestGame(t)
	g.UpdateOptions(func(c *GameConf) { c.MaxConnections = 1 })

	first := connect(t, g)
	first.expect(msgNewUsername)

	second := connect(t, g)
	lines := second.expectClosed()
	assert.Contains(t, lines, msgConnectionLimit)
	assert.NotContains(t, lines, msgNewUsername)
}

func TestAutoLogin(t *testing.T) {
	g := newTestGame(t)
	addPlayer(t, g, "Alice", "alice", "secret")

	g.UpdateOptions(func(c *GameConf) { c.AutoLogin = "alice" })
	c := connect(t, g)
	c.expect("Automatically authenticating you as Alice.")
	c.expect("*** Connected ***")
	assert.Equal(t, "Alice", c.player(g).Name)

	g.UpdateOptions(func(c *GameConf) { c.AutoLogin = "nobody" })
	c2 := connect(t, g)
	assert.Contains(t, c2.expectClosed(), msgAutoLoginFailed)
}

func TestLoginBanner(t *testing.T) {
	g := newTestGame(t)
	path := filepath.Join(t.TempDir(), "banner.txt")
	require.NoError(t, os.WriteFile(path, []byte("Mind the gap.\n"), 0o644))
	g.UpdateOptions(func(c *GameConf) { c.LoginBannerFile = path })
	g.loadBanner()

	c := connect(t, g)
	c.expect("Welcome to The LittleMUD Test Server.")
	c.expect("Mind the gap.")
	c.expect(msgCreatingFirstUser)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "READY", Ready.String())
	assert.Equal(t, "CREATE_PASSWORD_2", CreatePassword2.String())
	assert.Equal(t, "READING", Reading.String())
	assert.Equal(t, "STATE(99)", State(99).String())
}
