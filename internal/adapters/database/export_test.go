package database

import "time"

// SetClock replaces the time source used for install timestamps.
func (d *Database) SetClock(now func() time.Time) {
	d.now = now
}
