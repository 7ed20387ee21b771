// services/messages.go
package services

import (
	"fmt"
	"strings"
	"time"

	"marathon-bot/models"
	"marathon-bot/utils"
)

const designatedDaysNote = "The streak is only counted on Monday, Wednesday and Friday."

// ResetMessage announces that day was incomplete, listing everyone with ✅ or ❌.
func ResetMessage(day utils.DateKey, participants []models.Participant, checkedIn map[string]struct{}, previous int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Streak reset: running marathon - %s (%s)\n\n", day.LongForm(), day.Weekday())
	writeRoster(&b, participants, checkedIn, "✅", "❌")

	done := countParticipants(participants, checkedIn)
	fmt.Fprintf(&b, "\nOnly %d of %d checked in.", done, len(participants))
	fmt.Fprintf(&b, "\n%d did not check in, so the streak was reset.", len(participants)-done)
	fmt.Fprintf(&b, "\n\nPrevious streak: %d → current streak: 0", previous)
	if previous > 0 {
		fmt.Fprintf(&b, "\n\n🩹 Everyone can still restore it by checking in on %s (%s).",
			day.Tomorrow().LongForm(), day.Tomorrow().Weekday())
	}
	return b.String()
}

// IncreaseMessage announces a complete designated day.
func IncreaseMessage(day utils.DateKey, previous, current int) string {
	return fmt.Sprintf("🎉 Streak increased: %s\n\nEveryone checked in!\nPrevious streak: %d → current streak: %d",
		day.LongForm(), previous, current)
}

// RecoveryMessage announces a restored streak.
func RecoveryMessage(day utils.DateKey, previous, current int) string {
	return fmt.Sprintf("🩹 Streak recovered: %s\n\nEveryone checked in on the recovery day!\nRestored streak: %d → current streak: %d",
		day.LongForm(), previous, current)
}

// ReminderMessage lists today's check-in status. final marks the last call of the day.
func ReminderMessage(day utils.DateKey, participants []models.Participant, checkedIn map[string]struct{}, final bool) string {
	var b strings.Builder
	title := "🔔 Reminder"
	if final {
		title = "🔔 Last reminder"
	}
	fmt.Fprintf(&b, "%s: running marathon - %s (%s)\n\n", title, day.LongForm(), day.Weekday())
	writeRoster(&b, participants, checkedIn, "✅", "☑️")

	done := countParticipants(participants, checkedIn)
	remaining := len(participants) - done
	if remaining == 0 {
		b.WriteString("\n🎉 Everyone has checked in!")
		return b.String()
	}
	fmt.Fprintf(&b, "\n%d of %d checked in", done, len(participants))
	fmt.Fprintf(&b, "\n%d still to go!", remaining)
	if final {
		b.WriteString("\n\n⚠️ Today's check-in closes soon. Hurry up!")
	}
	return b.String()
}

// TodayMessage answers /today.
func TodayMessage(day utils.DateKey, participants []models.Participant, checkedIn map[string]struct{}) string {
	if len(participants) == 0 {
		return "Nobody has registered yet. Send /checkin to join."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Check-ins for %s (%s)\n\n", day.LongForm(), day.Weekday())
	writeRoster(&b, participants, checkedIn, "✅", "☑️")
	fmt.Fprintf(&b, "\n%d of %d checked in", countParticipants(participants, checkedIn), len(participants))
	if !day.IsDesignatedDay() {
		b.WriteString("\n\n" + designatedDaysNote)
	}
	return b.String()
}

// StreakEmoji picks the tier emoji for a streak length.
func StreakEmoji(streak int) string {
	switch {
	case streak >= 30:
		return "🌟"
	case streak >= 20:
		return "💫"
	case streak >= 10:
		return "✨"
	default:
		return "🔥"
	}
}

// StreakStatusMessage answers /streak.
func StreakStatusMessage(rec *models.StreakRecord, today utils.DateKey, loc *time.Location) string {
	emoji := StreakEmoji(rec.Current)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Running marathon streak %s\n", emoji, emoji)
	fmt.Fprintf(&b, "\nCurrent streak: %d", rec.Current)
	fmt.Fprintf(&b, "\nLongest streak: %d", rec.Longest)
	if rec.UpdatedAt.IsZero() {
		b.WriteString("\nLast update: unknown")
	} else {
		fmt.Fprintf(&b, "\nLast update: %s", rec.UpdatedAt.In(loc).Format("January 2, 2006 15:04"))
	}
	fmt.Fprintf(&b, "\nToday: %s", today.LongForm())
	b.WriteString("\n" + designatedDaysNote)

	switch {
	case rec.RecoveryPending():
		fmt.Fprintf(&b, "\n\n🩹 The streak of %d can still be recovered if everyone checks in on the recovery day.", *rec.Previous)
	case rec.Current == 0:
		b.WriteString("\n\n😢 The streak was reset. Let's start again!")
	case rec.Current >= 30:
		fmt.Fprintf(&b, "\n\n🎉 Amazing! %d in a row!", rec.Current)
	case rec.Current >= 10:
		fmt.Fprintf(&b, "\n\n👏 Great job! %d in a row!", rec.Current)
	default:
		fmt.Fprintf(&b, "\n\n💪 Keep going! %d in a row!", rec.Current)
	}
	return b.String()
}

// CheckinReply confirms a check-in and shows today's progress.
func CheckinReply(name string, day utils.DateKey, done, total int, withPhoto bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s checked in for %s", name, day.LongForm())
	if withPhoto {
		b.WriteString(" 📸")
	}
	fmt.Fprintf(&b, "\n%d of %d checked in today", done, total)
	if total > 0 && done == total {
		b.WriteString("\n🎉 Everyone is in!")
	}
	if !day.IsDesignatedDay() && !day.IsRecoveryDay() {
		b.WriteString("\n\n" + designatedDaysNote)
	}
	return b.String()
}

func writeRoster(b *strings.Builder, participants []models.Participant, checkedIn map[string]struct{}, yes, no string) {
	for _, p := range participants {
		mark := no
		if _, ok := checkedIn[p.UserID]; ok {
			mark = yes
		}
		fmt.Fprintf(b, "- %s %s\n", p.DisplayName, mark)
	}
}
