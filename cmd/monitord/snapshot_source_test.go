package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsentry/eventmonitor/internal/core"
	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
)

func newTestService(t *testing.T) *core.Service {
	t.Helper()
	return core.New(core.Config{
		SuperAdmin:  "root",
		MerkleDepth: 10,
		RateLimit:   ratelimit.DefaultConfig(),
		Logger:      zap.NewNop().Sugar(),
	})
}

func TestServiceSource_BuildSnapshot_EmptyState(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	src := newServiceSource(svc, "root")

	snap, err := src.BuildSnapshot()
	require.NoError(t, err)

	require.Zero(t, snap.CapturedTotal)
	require.Zero(t, snap.EventCount)
	require.Empty(t, snap.MerkleRoot)
	require.False(t, snap.Paused)
	require.Greater(t, snap.Timestamp, int64(0))

	var state core.State
	require.NoError(t, json.Unmarshal([]byte(snap.State), &state))
}

func TestServiceSource_BuildSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	svc.SetCurrentBlock(42)
	_, err := svc.SubmitEvent("root", &types.CapturedEvent{
		SourceApp:       "app-1",
		SourceChain:     "chain-1",
		Timestamp:       1700000000000,
		EventType:       "transfer",
		Data:            json.RawMessage(`{"amount":1}`),
		TransactionHash: "0xabc",
		Severity:        types.SeverityInfo,
	})
	require.NoError(t, err)

	snap, err := newServiceSource(svc, "root").BuildSnapshot()
	require.NoError(t, err)

	require.Equal(t, uint64(1), snap.CapturedTotal)
	require.Equal(t, uint64(1), snap.EventCount)
	require.Equal(t, uint64(2), snap.NextEventID)
	require.Equal(t, uint64(42), snap.CurrentBlock)
	require.Len(t, snap.MerkleRoot, 64)

	var state core.State
	require.NoError(t, json.Unmarshal([]byte(snap.State), &state))

	restored := newTestService(t)
	require.NoError(t, restored.Restore(state))
	require.Equal(t, uint64(1), restored.LifetimeCaptured())
	require.Equal(t, 1, restored.EventCount())
	require.Equal(t, uint64(42), restored.CurrentBlock())
}

func TestServiceSource_BuildSnapshot_UnauthorizedAdmin(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	src := newServiceSource(svc, "not-the-admin")

	_, err := svc.SubmitEvent("root", &types.CapturedEvent{
		SourceApp:       "app-1",
		SourceChain:     "chain-1",
		Timestamp:       1700000000000,
		EventType:       "transfer",
		Data:            json.RawMessage(`{}`),
		TransactionHash: "0xdef",
		Severity:        types.SeverityInfo,
	})
	require.NoError(t, err)

	_, err = src.BuildSnapshot()
	require.ErrorIs(t, err, core.ErrUnauthorized)
}
