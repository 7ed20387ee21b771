// utils/calendar.go
package utils

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const dateKeyLayout = "2006-01-02"

// FixedZone returns a fixed-offset zone for the given whole-hour offset. The
// zone carries its IANA name (Etc/GMT-9 is UTC+9, the sign is inverted) so
// time.LoadLocation can resolve it again, which cron's CRON_TZ prefix does.
func FixedZone(offsetHours int) *time.Location {
	return time.FixedZone(ZoneName(offsetHours), offsetHours*60*60)
}

// ZoneName is the IANA Etc zone for a whole-hour offset.
func ZoneName(offsetHours int) string {
	if offsetHours == 0 {
		return "Etc/UTC"
	}
	return fmt.Sprintf("Etc/GMT%+d", -offsetHours)
}

// DateKey identifies one calendar day in the group's zone, formatted YYYY-MM-DD.
type DateKey string

// CivilDay maps an instant to its calendar day in loc. The host's local zone is never consulted.
func CivilDay(t time.Time, loc *time.Location) DateKey {
	return DateKey(t.In(loc).Format(dateKeyLayout))
}

// ParseDateKey validates s as a YYYY-MM-DD day.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DateKey(t.Format(dateKeyLayout)), nil
}

// date returns midnight UTC of the key. The key is already civil, so all
// arithmetic and weekday extraction happen in UTC.
func (d DateKey) date() time.Time {
	t, err := time.Parse(dateKeyLayout, string(d))
	if err != nil {
		panic(fmt.Sprintf("utils: malformed DateKey %q", string(d)))
	}
	return t
}

func (d DateKey) String() string { return string(d) }

func (d DateKey) Weekday() time.Weekday { return d.date().Weekday() }

// AddDays moves the key by n calendar days.
func (d DateKey) AddDays(n int) DateKey {
	return DateKey(d.date().AddDate(0, 0, n).Format(dateKeyLayout))
}

func (d DateKey) Yesterday() DateKey { return d.AddDays(-1) }

func (d DateKey) Tomorrow() DateKey { return d.AddDays(1) }

// IsDesignatedDay reports whether the group's completeness is evaluated for d (Mon, Wed, Fri).
func (d DateKey) IsDesignatedDay() bool {
	switch d.Weekday() {
	case time.Monday, time.Wednesday, time.Friday:
		return true
	}
	return false
}

// IsRecoveryDay reports whether d directly follows a designated day.
func (d DateKey) IsRecoveryDay() bool {
	return d.Yesterday().IsDesignatedDay()
}

// LongForm renders the key as "Monday, January 1, 2024".
func (d DateKey) LongForm() string {
	return d.date().Format("Monday, January 2, 2006")
}

// DayInfo is the date context reported by the manual trigger.
type DayInfo struct {
	Today               DateKey `json:"today"`
	TodayWeekday        string  `json:"today_weekday"`
	Yesterday           DateKey `json:"yesterday"`
	YesterdayWeekday    string  `json:"yesterday_weekday"`
	YesterdayDesignated bool    `json:"yesterday_designated"`
	TodayRecoveryDay    bool    `json:"today_recovery_day"`
	Zone                string  `json:"zone"`
}

func NewDayInfo(now time.Time, loc *time.Location) DayInfo {
	today := CivilDay(now, loc)
	yesterday := today.Yesterday()
	return DayInfo{
		Today:               today,
		TodayWeekday:        today.Weekday().String(),
		Yesterday:           yesterday,
		YesterdayWeekday:    yesterday.Weekday().String(),
		YesterdayDesignated: yesterday.IsDesignatedDay(),
		TodayRecoveryDay:    today.IsRecoveryDay(),
		Zone:                loc.String(),
	}
}
