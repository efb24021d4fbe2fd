package session_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/stockscope-client/session"
	"github.com/stretchr/testify/require"
)

func TestRefreshCoordinator(t *testing.T) {
	t.Run("first caller leads and later callers queue", func(t *testing.T) {
		c := session.NewRefreshCoordinator()

		require.Equal(t, session.JoinLeader, c.Join(0, session.Continuation{}))
		require.True(t, c.InFlight())
		require.Equal(t, session.JoinQueued, c.Join(0, session.Continuation{}))
		require.Equal(t, session.JoinQueued, c.Join(0, session.Continuation{}))
		require.Equal(t, 2, c.Pending())

		c.Finish(nil)
		require.False(t, c.InFlight())
		require.Zero(t, c.Pending())
	})

	t.Run("queued continuations resolve in arrival order", func(t *testing.T) {
		c := session.NewRefreshCoordinator()
		require.Equal(t, session.JoinLeader, c.Join(0, session.Continuation{}))

		var order []int
		for i := 1; i <= 5; i++ {
			i := i
			c.Join(0, session.Continuation{
				Resolve: func() { order = append(order, i) },
				Reject:  func(error) { t.Fatalf("continuation %d rejected", i) },
			})
		}
		c.Finish(nil)
		require.Equal(t, []int{1, 2, 3, 4, 5}, order)
	})

	t.Run("failure rejects every waiter with the same error in order", func(t *testing.T) {
		c := session.NewRefreshCoordinator()
		require.Equal(t, session.JoinLeader, c.Join(0, session.Continuation{}))

		refreshErr := errors.New("refresh rejected")
		var got []error
		var order []int
		for i := 1; i <= 3; i++ {
			i := i
			c.Join(0, session.Continuation{
				Resolve: func() { t.Fatalf("continuation %d resolved", i) },
				Reject: func(err error) {
					order = append(order, i)
					got = append(got, err)
				},
			})
		}
		c.Finish(refreshErr)
		require.Equal(t, []int{1, 2, 3}, order)
		for _, err := range got {
			require.Same(t, refreshErr, err)
		}
	})

	t.Run("generation advances only on success", func(t *testing.T) {
		c := session.NewRefreshCoordinator()
		require.Zero(t, c.Generation())

		c.Join(0, session.Continuation{})
		c.Finish(errors.New("boom"))
		require.Zero(t, c.Generation())

		c.Join(0, session.Continuation{})
		c.Finish(nil)
		require.Equal(t, uint64(1), c.Generation())
	})

	t.Run("stale generation replays instead of refreshing", func(t *testing.T) {
		c := session.NewRefreshCoordinator()
		c.Join(0, session.Continuation{})
		c.Finish(nil)

		require.Equal(t, session.JoinStale, c.Join(0, session.Continuation{}))
		require.False(t, c.InFlight())
		require.Equal(t, session.JoinLeader, c.Join(1, session.Continuation{}))
	})

	t.Run("continuation may rejoin after finish", func(t *testing.T) {
		c := session.NewRefreshCoordinator()
		c.Join(0, session.Continuation{})

		var rejoined session.JoinResult = -1
		c.Join(0, session.Continuation{
			Resolve: func() { rejoined = c.Join(1, session.Continuation{}) },
		})
		c.Finish(nil)
		require.Equal(t, session.JoinLeader, rejoined)
	})
}
