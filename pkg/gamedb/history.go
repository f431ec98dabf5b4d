package gamedb

// History is a bounded list of the most recent commands, oldest first.
type History struct {
	lines []string
}

// Push appends line and evicts the oldest entries beyond limit.
// A limit of zero or less keeps nothing.
func (h *History) Push(line string, limit int) {
	if limit <= 0 {
		h.lines = nil
		return
	}
	h.lines = append(h.lines, line)
	if over := len(h.lines) - limit; over > 0 {
		h.lines = append(h.lines[:0:0], h.lines[over:]...)
	}
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.lines) }

// Back returns the entry n places before the newest; Back(0) is the newest.
func (h *History) Back(n int) (string, bool) {
	i := len(h.lines) - 1 - n
	if n < 0 || i < 0 {
		return "", false
	}
	return h.lines[i], true
}

// Lines returns a copy of the stored entries.
func (h *History) Lines() []string {
	return append([]string(nil), h.lines...)
}
