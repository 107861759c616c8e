package util

import (
	"time"

	"github.com/kapu/parish-directory-go/internal/constants"
)

var fallbackLocation = time.FixedZone("WAT", 1*60*60)

// LoadLocation resolves an IANA zone name, falling back to West Africa Time.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return fallbackLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallbackLocation
	}
	return loc
}

// Clock produces the timestamps stamped onto records.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func NewClock(location *time.Location) Clock {
	if location == nil {
		location = fallbackLocation
	}
	return Clock{Now: time.Now, Location: location}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Timestamp formats the current time as "2006-01-02 15:04".
func (c Clock) Timestamp() string {
	return c.now().In(c.loc()).Format(constants.TimeLayouts.Timestamp)
}

// BackupName returns "backup_YYYYmmdd_HHMMSS.json" for the current time.
func (c Clock) BackupName() string {
	return "backup_" + c.now().In(c.loc()).Format(constants.TimeLayouts.BackupName) + ".json"
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return fallbackLocation
	}
	return c.Location
}
