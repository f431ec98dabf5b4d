package validate

import (
	"fmt"
	"slices"
)

// Report summarizes a set of findings by category.
type Report struct {
	TotalFindings int
	Categories    map[Category]CategorySum
	Findings      []Finding
}

// CategorySum summarizes findings for a single category.
type CategorySum struct {
	Total   int
	Fixable int
	Fixed   int
	Label   string
}

var categoryLabels = map[Category]string{
	CatIntegrityError: "Referential integrity errors",
	CatIntegrityWarn:  "Referential integrity warnings",
}

// GenerateReport builds a Report from findings. fixed is the number of
// fixable findings that were applied, as returned by Fix.
func GenerateReport(findings []Finding, fixed int) *Report {
	r := &Report{
		TotalFindings: len(findings),
		Categories:    make(map[Category]CategorySum),
		Findings:      findings,
	}
	for _, f := range findings {
		cs, ok := r.Categories[f.Category]
		if !ok {
			cs.Label = categoryLabels[f.Category]
		}
		cs.Total++
		if f.Fixable {
			cs.Fixable++
			if fixed > 0 {
				cs.Fixed++
				fixed--
			}
		}
		r.Categories[f.Category] = cs
	}
	return r
}

// Lines renders the report for display, one category per line followed by
// the individual findings.
func (r *Report) Lines() []string {
	if r.TotalFindings == 0 {
		return []string{"No problems found."}
	}
	cats := make([]Category, 0, len(r.Categories))
	for c := range r.Categories {
		cats = append(cats, c)
	}
	slices.Sort(cats)

	var lines []string
	for _, c := range cats {
		cs := r.Categories[c]
		lines = append(lines, fmt.Sprintf("%s: %d found, %d fixable, %d fixed.", cs.Label, cs.Total, cs.Fixable, cs.Fixed))
	}
	for _, f := range r.Findings {
		lines = append(lines, f.String())
	}
	return lines
}
