package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		command Command
		args    string
	}{
		{"/checkin morning 5k", CommandCheckin, "morning 5k"},
		{"  /CHECKIN  ", CommandCheckin, ""},
		{"/checkin@marathon_bot 10k", CommandCheckin, "10k"},
		{"/checkin@other_bot 10k", CommandNone, ""},
		{"/checkin\nlong run by the river", CommandCheckin, "long run by the river"},
		{"/today", CommandToday, ""},
		{"/status", CommandStreak, ""},
		{"/streak", CommandStreak, ""},
		{"/mission sub 4h marathon", CommandMission, "sub 4h marathon"},
		{"/start", CommandHelp, ""},
		{"/dance now", CommandUnknown, "now"},
		{"good morning", CommandNone, ""},
		{"", CommandNone, ""},
	}
	for _, tt := range tests {
		command, args := ParseCommand(tt.text, "marathon_bot")
		assert.Equal(t, tt.command, command, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}
