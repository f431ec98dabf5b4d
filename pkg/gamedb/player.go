package gamedb

import (
	"time"

	"github.com/littlemud/littlemud/pkg/passwords"
)

// AccountInfo holds the login data of a player.
type AccountInfo struct {
	UID               string
	Password          string // digest, never plaintext
	Banned            bool
	LastConnectedTime time.Time
	LastConnectedHost string
	Access            AccessLevel
	History           History

	// Conn is the live transport. nil means not connected.
	Conn Conn
}

// SetPassword stores a digest of secret.
func (o *Object) SetPassword(secret string) error {
	digest, err := passwords.Hash(secret)
	if err != nil {
		return err
	}
	o.Account.Password = digest
	return nil
}

// Authenticate checks uid (case-sensitive) and secret against the stored
// credentials. A legacy digest is replaced with a bcrypt one on success.
func (o *Object) Authenticate(uid, secret string) bool {
	if o.Account == nil || o.Account.UID != uid {
		return false
	}
	if !passwords.Verify(secret, o.Account.Password) {
		return false
	}
	if passwords.NeedsRehash(o.Account.Password) {
		if digest, err := passwords.Hash(secret); err == nil {
			o.Account.Password = digest
		}
	}
	return true
}

// IsConnected reports whether a transport is bound.
func (o *Object) IsConnected() bool {
	return o.Account != nil && o.Account.Conn != nil
}

// Access returns the access level, Normal for non-players.
func (o *Object) Access() AccessLevel {
	if o.Account == nil {
		return Normal
	}
	return o.Account.Access
}

// Read asks the bound transport to pass the next line to fn.
func (o *Object) Read(fn func(line string) error, prompt string) bool {
	if !o.IsConnected() {
		return false
	}
	o.Account.Conn.Read(fn, prompt)
	return true
}

// Look shows the title and description of thing, or of the current
// location when thing is nil.
func (o *Object) Look(thing *Object) {
	if thing == nil {
		thing = o.Location
	}
	if thing == nil {
		o.Notify(NothingSpecial)
		return
	}
	o.Notify(thing.Title())
	o.Notify(thing.Description())
}

// OnConnected runs after a transport has been bound.
func (o *Object) OnConnected() {
	o.Look(nil)
}

// OnDisconnected runs after the transport has gone away.
func (o *Object) OnDisconnected() {}
