package gamedb

// MobileStats holds the role-play attributes of mobiles and players.
// The nil current values (HP, Aur, End) mean "at maximum".
type MobileStats struct {
	Blind      bool
	Speed      float64
	Level      int
	Experience int

	MaxHP  int
	HP     *int
	MaxAur int
	Aur    *int
	MaxEnd int
	End    *int

	Con int
	Str int
	Dex int
	Mag int
	Bra int
	Res int

	Gender *Gender

	Wearing map[string]*Object
	Skills  map[string]int
	Spells  map[string]int
}

func newMobileStats() *MobileStats {
	return &MobileStats{
		Speed:      2.0,
		Experience: 100,
		MaxHP:      5,
		MaxAur:     5,
		MaxEnd:     5,
		Con:        5,
		Str:        2,
		Dex:        2,
		Mag:        2,
		Bra:        2,
		Res:        2,
		Gender:     Neutral,
		Wearing:    map[string]*Object{},
		Skills:     map[string]int{},
		Spells:     map[string]int{},
	}
}

// CurrentHP returns HP, or MaxHP when HP is unset.
func (m *MobileStats) CurrentHP() int { return current(m.HP, m.MaxHP) }

// CurrentAur returns Aur, or MaxAur when Aur is unset.
func (m *MobileStats) CurrentAur() int { return current(m.Aur, m.MaxAur) }

// CurrentEnd returns End, or MaxEnd when End is unset.
func (m *MobileStats) CurrentEnd() int { return current(m.End, m.MaxEnd) }

// SetHP stores a current value. Values at or above the maximum collapse
// back to unset.
func (m *MobileStats) SetHP(v int) { m.HP = collapse(v, m.MaxHP) }

func (m *MobileStats) SetAur(v int) { m.Aur = collapse(v, m.MaxAur) }

func (m *MobileStats) SetEnd(v int) { m.End = collapse(v, m.MaxEnd) }

func current(v *int, max int) int {
	if v == nil {
		return max
	}
	return *v
}

func collapse(v, max int) *int {
	if v >= max {
		return nil
	}
	return &v
}
