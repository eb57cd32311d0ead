package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/snapshot"
)

type mockSnapshotRepo struct {
	mock.Mock
}

func (m *mockSnapshotRepo) CreateTableIfNotExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockSnapshotRepo) WriteSnapshot(ctx context.Context, s *snapshot.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSnapshotRepo) ReadLatest(ctx context.Context) (*snapshot.Snapshot, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*snapshot.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

// staticSource returns a fixed snapshot with a fresh timestamp on each call.
type staticSource struct {
	snap snapshot.Snapshot
	err  error
}

func (s *staticSource) BuildSnapshot() (*snapshot.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap := s.snap
	snap.Timestamp = time.Now().Unix()
	return &snap, nil
}

func TestStart_WritesAndCancels(t *testing.T) {
	t.Parallel()
	src := &staticSource{snap: snapshot.Snapshot{EventCount: 7, NextEventID: 8}}
	repo := &mockSnapshotRepo{}

	called := make(chan struct{}, 1)
	repo.
		On("WriteSnapshot", mock.Anything, mock.AnythingOfType("*snapshot.Snapshot")).
		Run(func(args mock.Arguments) {
			s := args.Get(1).(*snapshot.Snapshot)
			assert.Equal(t, uint64(7), s.EventCount)
			assert.Greater(t, s.Timestamp, int64(0))
			select {
			case called <- struct{}{}:
			default:
			}
		}).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, src, repo, 10*time.Millisecond)
	}()

	select {
	case <-called:
		cancel()
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for snapshot write")
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for scheduler to exit")
	}
}

func TestStart_WriteErrorPropagates(t *testing.T) {
	t.Parallel()
	src := &staticSource{snap: snapshot.Snapshot{EventCount: 1}}
	repo := &mockSnapshotRepo{}
	repo.
		On("WriteSnapshot", mock.Anything, mock.AnythingOfType("*snapshot.Snapshot")).
		Return(errors.New("write failed")).
		Times(4) // initial try + 3 retries

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gotErr := Start(ctx, src, repo, 5*time.Millisecond)
	assert.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "failed to write snapshot")
	repo.AssertExpectations(t)
}

func TestStart_BuildErrorPropagates(t *testing.T) {
	t.Parallel()
	src := &staticSource{err: errors.New("state unavailable")}
	repo := &mockSnapshotRepo{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gotErr := Start(ctx, src, repo, 5*time.Millisecond)
	assert.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "failed to build snapshot")
	repo.AssertNotCalled(t, "WriteSnapshot", mock.Anything, mock.Anything)
}

func TestStart_ImmediateCancel(t *testing.T) {
	t.Parallel()
	src := &staticSource{}
	repo := &mockSnapshotRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Start(ctx, src, repo, time.Second))
}
