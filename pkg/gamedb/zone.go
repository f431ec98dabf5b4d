package gamedb

import "time"

// ZoneInfo groups rooms for resets.
type ZoneInfo struct {
	ResetInterval float64 // minutes
	LastReset     time.Time
}

// ResetDue reports whether the zone should be reset at now.
func (z *ZoneInfo) ResetDue(now time.Time) bool {
	interval := time.Duration(z.ResetInterval * float64(time.Minute))
	return interval > 0 && now.Sub(z.LastReset) >= interval
}
