package service

import (
	"context"
	"testing"
	"time"

	"eaglearn-be/internal/broker"
	"eaglearn-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSessionsAnnouncesTamperedSessions(t *testing.T) {
	store := newFakeStore()
	bc := &captureBroadcaster{}
	svc := NewMonitorService(&fakeUowFactory{store: store}, nil, bc, nil, nil, nopLogger{})

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	healthy := seedSession(store, days(1), nil, now)
	tampered := seedSession(store, days(2), nil, now)
	store.tampered[tampered] = true

	res, err := svc.ListSessions(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Excluded)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, healthy, res.Sessions[0].Id)

	frames := bc.captured()
	require.Len(t, frames, 1)
	assert.Equal(t, broker.SessionChannel(tampered), frames[0].channel)
	assert.Equal(t, events.TypeTamperOrCorruption, frames[0].frame.Type)
	data, ok := frames[0].frame.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, tampered, data["session_id"])
}

func TestListSessionsClampsPaging(t *testing.T) {
	store := newFakeStore()
	svc := NewMonitorService(&fakeUowFactory{store: store}, nil, &captureBroadcaster{}, nil, nil, nopLogger{})

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	seedSession(store, days(1), nil, now)

	res, err := svc.ListSessions(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 1)
	assert.Equal(t, 0, res.Excluded)
}
