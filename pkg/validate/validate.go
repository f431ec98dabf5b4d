// Package validate checks player-chosen names and the consistency of a
// freshly loaded world.
package validate

import (
	"fmt"

	"github.com/littlemud/littlemud/pkg/gamedb"
)

// Category classifies the type of finding.
type Category int

const (
	CatIntegrityError Category = iota // Broken containment
	CatIntegrityWarn                  // Suspicious but harmless references
)

func (c Category) String() string {
	switch c {
	case CatIntegrityError:
		return "integrity-error"
	case CatIntegrityWarn:
		return "integrity-warning"
	default:
		return "unknown"
	}
}

// Severity indicates how serious a finding is.
type Severity int

const (
	SevError   Severity = iota // Must be fixed for correct behavior
	SevWarning                 // Should be reviewed
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Finding is a single problem detected in the world.
type Finding struct {
	ID          string
	Category    Category
	Severity    Severity
	Object      *gamedb.Object
	Description string
	Fixable     bool

	fix func()
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s/%s] %s", f.Category, f.Severity, f.Description)
}

// Checker inspects a database and reports findings.
type Checker interface {
	Name() string
	Check(db *gamedb.Database) []Finding
}

// Run executes every checker in order.
func Run(db *gamedb.Database, checkers ...Checker) []Finding {
	var all []Finding
	for _, c := range checkers {
		all = append(all, c.Check(db)...)
	}
	return all
}

// Fix applies every fixable finding and returns how many were applied.
func Fix(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Fixable && f.fix != nil {
			f.fix()
			n++
		}
	}
	return n
}
