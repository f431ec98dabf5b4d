package validate

import (
	"fmt"

	"github.com/littlemud/littlemud/pkg/gamedb"
)

// IntegrityChecker verifies the containment tree after a load: every
// object is listed by its location exactly once, every listed content
// points back at its container, nothing refers to destroyed objects, and
// no location chain loops.
type IntegrityChecker struct{}

func (c *IntegrityChecker) Name() string { return "integrity" }

func (c *IntegrityChecker) Check(db *gamedb.Database) []Finding {
	var findings []Finding
	seq := 0
	add := func(f Finding) {
		f.ID = fmt.Sprintf("integrity-%d", seq)
		seq++
		findings = append(findings, f)
	}

	objects := db.Objects()
	live := make(map[*gamedb.Object]bool, len(objects))
	for _, o := range objects {
		live[o] = true
	}

	for _, obj := range objects {
		obj := obj
		loc := obj.Location

		if loc != nil && !live[loc] {
			add(Finding{
				Category:    CatIntegrityError,
				Severity:    SevError,
				Object:      obj,
				Description: fmt.Sprintf("%s is located in %s which is not in the world", obj, loc),
				Fixable:     true,
				fix:         func() { obj.Location = nil },
			})
			continue
		}

		if loopsBack(obj, len(objects)) {
			add(Finding{
				Category:    CatIntegrityError,
				Severity:    SevError,
				Object:      obj,
				Description: fmt.Sprintf("location chain of %s loops", obj),
				Fixable:     true,
				fix: func() {
					if obj.Location != nil {
						obj.Location.RemoveContent(obj)
					}
					obj.Location = nil
				},
			})
			continue
		}

		if loc != nil && countOf(loc.Contents, obj) == 0 {
			add(Finding{
				Category:    CatIntegrityError,
				Severity:    SevError,
				Object:      obj,
				Description: fmt.Sprintf("%s is missing from the contents of %s", obj, loc),
				Fixable:     true,
				fix:         func() { loc.AddContent(obj) },
			})
		}

		seen := make(map[*gamedb.Object]bool, len(obj.Contents))
		for _, c := range obj.Contents {
			c := c
			switch {
			case seen[c]:
				add(Finding{
					Category:    CatIntegrityWarn,
					Severity:    SevWarning,
					Object:      obj,
					Description: fmt.Sprintf("%s lists %s more than once", obj, c),
					Fixable:     true,
					fix:         func() { obj.RemoveContent(c) },
				})
			case !live[c] || c.Location != obj:
				add(Finding{
					Category:    CatIntegrityError,
					Severity:    SevError,
					Object:      obj,
					Description: fmt.Sprintf("%s lists %s which is located elsewhere", obj, c),
					Fixable:     true,
					fix:         func() { obj.RemoveContent(c) },
				})
			}
			seen[c] = true
		}

		if owner := obj.Owner; owner != nil && !live[owner] {
			add(Finding{
				Category:    CatIntegrityWarn,
				Severity:    SevWarning,
				Object:      obj,
				Description: fmt.Sprintf("%s is owned by %s which is not in the world", obj, owner),
				Fixable:     true,
				fix:         func() { obj.Owner = nil },
			})
		}
	}
	return findings
}

func loopsBack(obj *gamedb.Object, limit int) bool {
	steps := 0
	for l := obj.Location; l != nil; l = l.Location {
		if l == obj || steps > limit {
			return true
		}
		steps++
	}
	return false
}

func countOf(list []*gamedb.Object, obj *gamedb.Object) int {
	n := 0
	for _, o := range list {
		if o == obj {
			n++
		}
	}
	return n
}
