package gamedb

import "strings"

// FormatMessage substitutes the {name}, {title}, {player_name},
// {player_title}, {location_name} and {location_title} placeholders.
// Any participant may be nil, in which case fixed fallback words are used.
func FormatMessage(template string, object, location, player *Object) string {
	r := strings.NewReplacer(
		"{name}", nameOr(object, "nothing"),
		"{title}", titleOr(object, "Nothing"),
		"{player_name}", nameOr(player, "noone"),
		"{player_title}", titleOr(player, "Noone"),
		"{location_name}", nameOr(location, "nowhere"),
		"{location_title}", titleOr(location, "Nowhere"),
	)
	return r.Replace(template)
}

// FormatMessage formats template with o as the object and o's location.
func (o *Object) FormatMessage(template string, player *Object) string {
	return FormatMessage(template, o, o.Location, player)
}

func nameOr(o *Object, fallback string) string {
	if o == nil {
		return fallback
	}
	return o.Name
}

func titleOr(o *Object, fallback string) string {
	if o == nil {
		return fallback
	}
	return o.Title()
}
