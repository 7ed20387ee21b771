package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reminderFixture struct {
	memRoster
	memCheckins
}

func TestReminderOnDesignatedDay(t *testing.T) {
	notifier := &recordingNotifier{}
	store := reminderFixture{roster("a", "b"), memCheckins{"2024-01-03": {"a"}}}
	svc := NewReminderService(store, notifier, kst, zap.NewNop())

	svc.now = func() time.Time { return at(3, 20, 0) }
	sent, err := svc.Remind(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "🔔 Reminder")
	assert.Contains(t, msg, "- runner-a ✅")
	assert.Contains(t, msg, "- runner-b ☑️")
	assert.Contains(t, msg, "1 still to go!")
	assert.NotContains(t, msg, "closes soon")

	svc.now = func() time.Time { return at(3, 23, 0) }
	_, err = svc.Remind(context.Background(), true)
	require.NoError(t, err)
	assert.Contains(t, notifier.messages[1], "🔔 Last reminder")
	assert.Contains(t, notifier.messages[1], "closes soon")
}

func TestReminderWhenEveryoneIsIn(t *testing.T) {
	notifier := &recordingNotifier{}
	store := reminderFixture{roster("a"), memCheckins{"2024-01-05": {"a"}}}
	svc := NewReminderService(store, notifier, kst, zap.NewNop())
	svc.now = func() time.Time { return at(5, 23, 0) }

	_, err := svc.Remind(context.Background(), true)
	require.NoError(t, err)
	assert.Contains(t, notifier.messages[0], "Everyone has checked in!")
	assert.NotContains(t, notifier.messages[0], "closes soon")
}

func TestReminderSkips(t *testing.T) {
	notifier := &recordingNotifier{}

	svc := NewReminderService(reminderFixture{roster("a"), memCheckins{}}, notifier, kst, zap.NewNop())
	svc.now = func() time.Time { return at(2, 20, 0) } // tuesday
	sent, err := svc.Remind(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, sent)

	svc = NewReminderService(reminderFixture{nil, memCheckins{}}, notifier, kst, zap.NewNop())
	svc.now = func() time.Time { return at(1, 20, 0) }
	sent, err = svc.Remind(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Empty(t, notifier.messages)
}
