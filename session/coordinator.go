package session

import "sync"

// Continuation is a request parked behind an in-flight refresh.
type Continuation struct {
	Resolve func()
	Reject  func(err error)
}

// RefreshCoordinator guarantees at most one refresh in flight. Requests that find a
// refresh running park a continuation; the leader resolves or rejects all of them
// in arrival order when its refresh completes. Construct one per Manager.
type RefreshCoordinator struct {
	inFlight   bool
	queue      []Continuation
	generation uint64
	lock       sync.Mutex
}

func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{}
}

// JoinResult tells a caller that saw a 401 what to do next.
type JoinResult int

const (
	// JoinLeader means the caller must perform the refresh and call Finish.
	JoinLeader JoinResult = iota
	// JoinQueued means the continuation was parked behind the running refresh.
	JoinQueued
	// JoinStale means a refresh completed after seen was observed; replay directly.
	JoinStale
)

// Join claims the refresh for the caller, parks cont behind the running refresh,
// or reports that the caller's credential is already stale. seen is the
// generation observed before the failed request was sent. The check and the
// claim happen under one lock.
func (c *RefreshCoordinator) Join(seen uint64, cont Continuation) JoinResult {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case c.inFlight:
		c.queue = append(c.queue, cont)
		return JoinQueued
	case c.generation != seen:
		return JoinStale
	}
	c.inFlight = true
	return JoinLeader
}

// Finish ends the current refresh. With a nil err every queued continuation is
// resolved, otherwise rejected with err; both in FIFO order. The queue and the
// in-flight flag are reset before any continuation runs.
func (c *RefreshCoordinator) Finish(err error) {
	c.lock.Lock()
	queue := c.queue
	c.queue = nil
	c.inFlight = false
	if err == nil {
		c.generation++
	}
	c.lock.Unlock()

	for _, cont := range queue {
		if err == nil {
			if cont.Resolve != nil {
				cont.Resolve()
			}
			continue
		}
		if cont.Reject != nil {
			cont.Reject(err)
		}
	}
}

func (c *RefreshCoordinator) InFlight() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.inFlight
}

// Pending returns the number of parked continuations.
func (c *RefreshCoordinator) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.queue)
}

// Generation counts successful refreshes. A request that observed an older
// generation when it was sent already has a newer credential waiting for it.
func (c *RefreshCoordinator) Generation() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.generation
}
