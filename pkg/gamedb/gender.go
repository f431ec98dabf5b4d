package gamedb

import "strings"

// Gender carries the pronouns used when describing a mobile.
type Gender struct {
	Sex  string
	He   string
	Him  string
	His  string
	Hers string
}

var (
	Male    = &Gender{Sex: "male", He: "he", Him: "him", His: "his", Hers: "his"}
	Female  = &Gender{Sex: "female", He: "she", Him: "her", His: "her", Hers: "hers"}
	Neutral = &Gender{Sex: "neutral", He: "it", Him: "it", His: "its", Hers: "its"}
)

// Genders lists the known genders. Character creation offers the first two.
var Genders = []*Gender{Male, Female, Neutral}

// GenderBySex looks a gender up by name.
func GenderBySex(sex string) (*Gender, bool) {
	for _, g := range Genders {
		if strings.EqualFold(g.Sex, sex) {
			return g, true
		}
	}
	return nil, false
}
