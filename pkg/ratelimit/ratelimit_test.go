package ratelimit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxEventsPerBlock:       5,
		GlobalMaxEventsPerBlock: 100,
		BurstMultiplier:         1.0,
		CooldownBlocks:          3,
		Enabled:                 true,
	}
}

func TestAdmitUpToAppLimitThenBlock(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10), "event %d", i)
	}

	err := l.CheckAndIncrement("app-a", 10)
	var appErr *AppLimitError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "app-a", appErr.AppID)
	assert.Equal(t, uint64(13), appErr.BlockedUntil)

	// Other applications keep their own allowance.
	require.NoError(t, l.CheckAndIncrement("app-b", 10))
}

func TestCooldownExpires(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10))
	}
	require.Error(t, l.CheckAndIncrement("app-a", 10))

	// Still inside the cooldown window.
	err := l.CheckAndIncrement("app-a", 12)
	var blocked *AppBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, uint64(13), blocked.BlockedUntil)
	assert.Equal(t, uint64(12), blocked.CurrentBlock)

	// Cooldown clears at its boundary block.
	require.NoError(t, l.CheckAndIncrement("app-a", 13))
}

func TestCountersResetOnNewBlock(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10))
	}
	require.NoError(t, l.CheckAndIncrement("app-a", 11))
}

func TestGlobalLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxEventsPerBlock = 100
	cfg.GlobalMaxEventsPerBlock = 6
	l := New(cfg)

	for i := 0; i < 6; i++ {
		app := fmt.Sprintf("app-%d", i)
		require.NoError(t, l.CheckAndIncrement(app, 5))
	}

	err := l.CheckAndIncrement("app-late", 5)
	var global *GlobalLimitError
	require.ErrorAs(t, err, &global)
	assert.Equal(t, uint64(6), global.Limit)
	assert.Equal(t, uint64(6), global.Current)

	// A global rejection places no cooldown.
	require.NoError(t, l.CheckAndIncrement("app-late", 6))
}

func TestBurstMultiplier(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.BurstMultiplier = 1.5
	l := New(cfg)

	// 5 * 1.5 = 7 admitted events.
	for i := 0; i < 7; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 1), "event %d", i)
	}

	// The rejection reports the burst-scaled allowance.
	err := l.CheckAndIncrement("app-a", 1)
	var appErr *AppLimitError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, uint64(7), appErr.Limit)
}

func TestPauseDominatesEverything(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Enabled = false
	l := New(cfg)
	l.Pause()

	// Paused wins even with limiting disabled.
	err := l.CheckAndIncrement("app-a", 1)
	require.ErrorIs(t, err, ErrIngestionPaused)
	assert.True(t, l.Paused())

	l.Resume()
	require.NoError(t, l.CheckAndIncrement("app-a", 1))
}

func TestDisabledAdmitsWithoutCounting(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Enabled = false
	l := New(cfg)

	for i := 0; i < 50; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 1))
	}
	assert.Zero(t, l.Stats().GlobalCount)
}

func TestUnblockApp(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10))
	}
	require.Error(t, l.CheckAndIncrement("app-a", 10))

	assert.True(t, l.UnblockApp("app-a"))
	assert.False(t, l.UnblockApp("app-a"))

	// Unblocking lifts the cooldown but not the spent allowance.
	err := l.CheckAndIncrement("app-a", 10)
	var appErr *AppLimitError
	require.ErrorAs(t, err, &appErr)
	require.NoError(t, l.CheckAndIncrement("app-a", 14))
}

func TestUpdateConfig(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10))
	}
	require.Error(t, l.CheckAndIncrement("app-a", 10))

	cfg := testConfig()
	cfg.MaxEventsPerBlock = 10
	l.UpdateConfig(cfg)
	assert.Equal(t, uint64(10), l.Config().MaxEventsPerBlock)

	// The raised limit applies once the existing cooldown passes.
	require.NoError(t, l.CheckAndIncrement("app-a", 13))
}

func TestStats(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	require.NoError(t, l.CheckAndIncrement("app-a", 10))
	require.NoError(t, l.CheckAndIncrement("app-a", 10))
	require.NoError(t, l.CheckAndIncrement("app-b", 10))

	s := l.Stats()
	assert.Equal(t, uint64(3), s.GlobalCount)
	assert.Equal(t, uint64(10), s.CurrentBlock)
	assert.Equal(t, uint64(2), s.AppCounts["app-a"])
	assert.Equal(t, uint64(1), s.AppCounts["app-b"])
	assert.Empty(t, s.BlockedApps)
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	l := New(testConfig())
	l.Pause()
	l.Resume()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement("app-a", 10))
	}
	require.Error(t, l.CheckAndIncrement("app-a", 10))

	restored := New(DefaultConfig())
	restored.Restore(l.Snapshot())

	// The cooldown survives the round trip.
	err := restored.CheckAndIncrement("app-a", 11)
	var blocked *AppBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, uint64(13), blocked.BlockedUntil)
	assert.Equal(t, l.Stats(), restored.Stats())
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	assert.EqualError(t,
		&AppBlockedError{AppID: "a", BlockedUntil: 9, CurrentBlock: 7},
		"application a is blocked until block 9 (current block 7)")
	assert.EqualError(t,
		&GlobalLimitError{Limit: 10, Current: 10},
		"global rate limit exceeded: 10 of 10 events this block")
	assert.EqualError(t,
		&AppLimitError{AppID: "a", Limit: 5, BlockedUntil: 9},
		"application a exceeded rate limit of 5 events per block, blocked until block 9")
	assert.True(t, errors.Is(ErrIngestionPaused, ErrIngestionPaused))
}
