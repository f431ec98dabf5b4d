package validate

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed curses.txt
var curseList string

var curses = sync.OnceValue(func() []string {
	return strings.Fields(strings.ToLower(curseList))
})

// Name policy messages.
const (
	MsgProfanity  = "Names must not contain any profanity."
	MsgSpaces     = "Only one space character allowed in a name."
	MsgCharacters = "Your name must contain only the letters a to z (upper or lower case), with the first and last names separated by a space."
)

// ContainsCurses counts the curse words found anywhere in text.
func ContainsCurses(text string) int {
	text = strings.ToLower(text)
	n := 0
	for _, c := range curses() {
		if strings.Contains(text, c) {
			n++
		}
	}
	return n
}

// DisallowedName returns the reason name may not be used, or "" when the
// name is acceptable.
func DisallowedName(name string) string {
	switch {
	case ContainsCurses(name) > 0:
		return MsgProfanity
	case strings.Count(name, " ") > 1:
		return MsgSpaces
	case strings.TrimFunc(name, isNameRune) != "":
		return MsgCharacters
	}
	return ""
}

func isNameRune(r rune) bool {
	return r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
