package utils_test

import (
	"testing"
	"time"

	"marathon-bot/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYesterdayCrossesBoundaries(t *testing.T) {
	t.Parallel()

	cases := map[utils.DateKey]utils.DateKey{
		"2024-02-01": "2024-01-31",
		"2024-01-01": "2023-12-31",
		"2024-03-01": "2024-02-29", // leap year
		"2023-03-01": "2023-02-28",
		"2024-06-15": "2024-06-14",
	}
	for day, want := range cases {
		assert.Equal(t, want, day.Yesterday(), "yesterday of %s", day)
		assert.Equal(t, day, want.Tomorrow(), "tomorrow of %s", want)
	}
}

func TestIsDesignatedDay(t *testing.T) {
	t.Parallel()

	// 2024-01-01 is a Monday.
	want := map[utils.DateKey]bool{
		"2024-01-01": true,  // Mon
		"2024-01-02": false, // Tue
		"2024-01-03": true,  // Wed
		"2024-01-04": false, // Thu
		"2024-01-05": true,  // Fri
		"2024-01-06": false, // Sat
		"2024-01-07": false, // Sun
	}
	for day, designated := range want {
		assert.Equal(t, designated, day.IsDesignatedDay(), "%s (%s)", day, day.Weekday())
	}
}

func TestIsRecoveryDayFollowsDesignatedDays(t *testing.T) {
	t.Parallel()

	start := utils.DateKey("2024-01-01")
	var recovery []time.Weekday
	for i := 0; i < 7; i++ {
		day := start.AddDays(i)
		if day.IsRecoveryDay() {
			recovery = append(recovery, day.Weekday())
		}
	}
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}, recovery)
}

func TestCivilDayUsesFixedZone(t *testing.T) {
	t.Parallel()

	zone := utils.FixedZone(9)

	// 2024-01-01 15:30 UTC is already Tuesday 00:30 in UTC+9.
	instant := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	day := utils.CivilDay(instant, zone)
	assert.Equal(t, utils.DateKey("2024-01-02"), day)
	assert.Equal(t, time.Tuesday, day.Weekday())
	assert.False(t, day.IsDesignatedDay())

	// The same instant expressed in another zone maps to the same key.
	ny, err := time.LoadLocation("America/New_York")
	if err == nil {
		assert.Equal(t, day, utils.CivilDay(instant.In(ny), zone))
	}

	// Later instants never map to an earlier key.
	assert.GreaterOrEqual(t, string(utils.CivilDay(instant.Add(time.Minute), zone)), string(day))
}

func TestParseDateKey(t *testing.T) {
	t.Parallel()

	day, err := utils.ParseDateKey("2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, utils.DateKey("2025-01-01"), day.Tomorrow())

	_, err = utils.ParseDateKey("2024-13-01")
	assert.Error(t, err)
	_, err = utils.ParseDateKey("yesterday")
	assert.Error(t, err)
}

func TestNewDayInfo(t *testing.T) {
	t.Parallel()

	// Tuesday 2024-01-02 10:00 in UTC+9.
	now := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	info := utils.NewDayInfo(now, utils.FixedZone(9))

	assert.Equal(t, utils.DateKey("2024-01-02"), info.Today)
	assert.Equal(t, utils.DateKey("2024-01-01"), info.Yesterday)
	assert.Equal(t, "Monday", info.YesterdayWeekday)
	assert.True(t, info.YesterdayDesignated)
	assert.True(t, info.TodayRecoveryDay)
	assert.Equal(t, "UTC+9", info.Zone)
}

func TestFixedZoneNameResolves(t *testing.T) {
	t.Parallel()

	for _, hours := range []int{-12, -5, 0, 9, 14} {
		zone := utils.FixedZone(hours)
		loaded, err := time.LoadLocation(zone.String())
		require.NoError(t, err, "offset %d", hours)

		at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		_, want := at.In(zone).Zone()
		_, got := at.In(loaded).Zone()
		assert.Equal(t, hours*60*60, want)
		assert.Equal(t, want, got, "offset %d", hours)
	}
	assert.Equal(t, "Etc/GMT-9", utils.ZoneName(9))
}
