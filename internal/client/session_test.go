package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/internal/task"
)

const eventually = 5 * time.Second

func startSession(t *testing.T, st *testStack, opts ...SessionOption) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(st.client, NewSynchronizer(), opts...)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(eventually):
			t.Error("session did not stop")
		}
	})
	return s
}

func TestSession_TwoClientsConverge(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)

	seeded, err := st.client.Create(ctx, CreateRequest{Title: "already there"})
	require.NoError(t, err)

	a := startSession(t, st)
	b := startSession(t, st)
	require.Eventually(t, func() bool { return st.bus.Len() == 2 }, eventually, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return a.Synchronizer().Len() == 1 && b.Synchronizer().Len() == 1
	}, eventually, 10*time.Millisecond)

	// A creates and merges its own response; the echoed event must not
	// produce a second entry.
	created, err := st.client.Create(ctx, CreateRequest{Title: "Write report"})
	require.NoError(t, err)
	a.Synchronizer().ApplyCreated(created)

	require.Eventually(t, func() bool {
		_, ok := b.Synchronizer().Get(created.ID)
		return ok
	}, eventually, 10*time.Millisecond)
	assert.Equal(t, []string{created.ID, seeded.ID}, ids(b.Synchronizer().Snapshot()))
	assert.Never(t, func() bool { return a.Synchronizer().Len() != 2 }, 200*time.Millisecond, 10*time.Millisecond)

	// B moves it along; A sees the new status.
	_, err = st.client.SetStatus(ctx, created.ID, task.StatusInProgress)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, ok := a.Synchronizer().Get(created.ID)
		return ok && got.Status == task.StatusInProgress
	}, eventually, 10*time.Millisecond)

	require.NoError(t, st.client.Delete(ctx, created.ID))
	require.Eventually(t, func() bool {
		_, okA := a.Synchronizer().Get(created.ID)
		_, okB := b.Synchronizer().Get(created.ID)
		return !okA && !okB
	}, eventually, 10*time.Millisecond)
	assert.Equal(t, a.Synchronizer().Snapshot(), b.Synchronizer().Snapshot())
}

func TestSession_ReconnectsAndReseeds(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	st.eventsDown.Store(true)

	s := startSession(t, st, WithReconnectDelay(20*time.Millisecond))

	created, err := st.client.Create(ctx, CreateRequest{Title: "made while offline"})
	require.NoError(t, err)
	assert.Never(t, func() bool { return s.Synchronizer().Len() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	st.eventsDown.Store(false)
	require.Eventually(t, func() bool {
		_, ok := s.Synchronizer().Get(created.ID)
		return ok
	}, eventually, 10*time.Millisecond)
	require.Eventually(t, func() bool { return st.bus.Len() == 1 }, eventually, 10*time.Millisecond)
}
