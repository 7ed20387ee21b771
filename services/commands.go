// services/commands.go
package services

import "strings"

// Command is the closed set of bot commands.
type Command int

const (
	CommandNone Command = iota // not a command
	CommandUnknown
	CommandCheckin
	CommandToday
	CommandStreak
	CommandMission
	CommandHelp
)

func (c Command) String() string {
	switch c {
	case CommandCheckin:
		return "checkin"
	case CommandToday:
		return "today"
	case CommandStreak:
		return "streak"
	case CommandMission:
		return "mission"
	case CommandHelp:
		return "help"
	case CommandUnknown:
		return "unknown"
	}
	return "none"
}

// HelpText lists the commands.
const HelpText = `🏃 Running marathon bot

/checkin [note] - check in for today (attach a photo with the command as caption)
/today - who has checked in today
/streak - the group's streak
/mission <text> - set your personal mission
/help - this message

The streak is only counted on Monday, Wednesday and Friday.`

// ParseCommand splits a message into its command and argument text.
// botName, when set, must match any @suffix on the command.
func ParseCommand(text, botName string) (Command, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return CommandNone, ""
	}

	head, args, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n"); i >= 0 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}
	name := strings.ToLower(strings.TrimPrefix(head, "/"))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		if botName != "" && !strings.EqualFold(name[at+1:], botName) {
			return CommandNone, "" // addressed to another bot
		}
		name = name[:at]
	}
	args = strings.TrimSpace(args)

	switch name {
	case "checkin", "check":
		return CommandCheckin, args
	case "today":
		return CommandToday, args
	case "streak", "status":
		return CommandStreak, args
	case "mission":
		return CommandMission, args
	case "help", "start":
		return CommandHelp, args
	}
	return CommandUnknown, args
}
