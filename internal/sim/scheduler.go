// Package sim implements the discrete-event scheduler (C5) and the
// process-wide channel-busy flags (C6) that the MAC state machine polls
// during CCA. The scheduler is grounded on the teacher's
// container/heap-based alarm queue: one pending wakeup per node, popped in
// (timestamp, nodeID) order, with node goroutines suspended on a private
// channel between wakeups.
package sim

import (
	"container/heap"
	"fmt"

	"github.com/simonlingoogle/go-simplelogger"

	"github.com/CongducPham/lorasimmac/internal/progctx"
)

// Ever is the sentinel "no pending wakeup" timestamp, matching the
// teacher's alarm_mgr convention of a very large value rather than a
// separate boolean.
const Ever = 1 << 62

type alarmEvent struct {
	nodeID    int
	timestamp float64
	index     int
}

type alarmQueue []*alarmEvent

func (q alarmQueue) Len() int { return len(q) }
func (q alarmQueue) Less(i, j int) bool {
	if q[i].timestamp != q[j].timestamp {
		return q[i].timestamp < q[j].timestamp
	}
	return q[i].nodeID < q[j].nodeID // deterministic tie-break, spec §5
}
func (q alarmQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *alarmQueue) Push(x interface{}) {
	e := x.(*alarmEvent)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *alarmQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Scheduler advances a single virtual clock shared by every node, running
// node goroutines cooperatively: at most one node's non-suspending code
// runs at a time, so the gateway's in-flight set, the channel-busy flags
// and the statistics sink need no locking.
type Scheduler struct {
	q         alarmQueue
	events    map[int]*alarmEvent
	wake      map[int]chan struct{}
	turnDone  chan int
	now       float64
	simtimeMs float64
	Busy      ChannelState

	ctx *progctx.ProgCtx // optional; see BindContext
}

func waitName(nodeID int) string { return fmt.Sprintf("node-%d", nodeID) }

// BindContext ties this scheduler's node goroutines to ctx's waitgroup:
// every node Register'd after this call adds one to ctx's pending count,
// and Finish (or, for nodes still mid-run when Run's horizon is reached,
// Run itself) counts it back down, so ctx.Wait() unblocks once the run has
// fully wound down. Call before Register; a nil or never-bound ctx is a
// no-op, matching every call site that doesn't need run-lifetime tracking.
func (s *Scheduler) BindContext(ctx *progctx.ProgCtx) {
	s.ctx = ctx
}

// NewScheduler creates a scheduler bounded by simtimeMs of virtual time.
func NewScheduler(simtimeMs float64) *Scheduler {
	s := &Scheduler{
		events:    map[int]*alarmEvent{},
		wake:      map[int]chan struct{}{},
		turnDone:  make(chan int),
		simtimeMs: simtimeMs,
	}
	heap.Init(&s.q)
	return s
}

// Register adds a node to the scheduler. Call once per node before Run.
func (s *Scheduler) Register(nodeID int) {
	simplelogger.AssertTrue(s.events[nodeID] == nil)
	e := &alarmEvent{nodeID: nodeID, timestamp: Ever}
	heap.Push(&s.q, e)
	s.events[nodeID] = e
	s.wake[nodeID] = make(chan struct{})
	if s.ctx != nil {
		s.ctx.WaitAdd(waitName(nodeID), 1)
	}
}

// Now returns the current virtual time in milliseconds.
func (s *Scheduler) Now() float64 { return s.now }

// Sleep suspends the calling node's goroutine until the scheduler's clock
// reaches now+durMs, handing control back to the scheduler loop in the
// meantime. durMs must be >= 0.
func (s *Scheduler) Sleep(nodeID int, durMs float64) {
	e := s.events[nodeID]
	simplelogger.AssertNotNil(e)
	e.timestamp = s.now + durMs
	heap.Fix(&s.q, e.index)

	s.turnDone <- nodeID
	<-s.wake[nodeID]
}

// Finish tells the scheduler this node will never run again. Call exactly
// once, as the last thing a node goroutine does.
func (s *Scheduler) Finish(nodeID int) {
	e := s.events[nodeID]
	simplelogger.AssertNotNil(e)
	heap.Remove(&s.q, e.index)
	delete(s.events, nodeID)
	if s.ctx != nil {
		s.ctx.WaitDone(waitName(nodeID))
	}

	s.turnDone <- nodeID
}

// Run drives the scheduler until no node has a pending wakeup within
// simtimeMs, or until the context bound with BindContext is cancelled.
// Every node goroutine must already be started and blocked in its first
// Sleep/Finish call before Run is invoked (see Start).
func (s *Scheduler) Run() {
	for {
		if s.ctx != nil && s.ctx.Err() != nil {
			s.finishRemaining()
			return
		}
		if len(s.q) == 0 {
			s.finishRemaining()
			return
		}
		next := s.q[0]
		if next.timestamp >= s.simtimeMs {
			s.finishRemaining()
			return
		}
		s.now = next.timestamp
		ch := s.wake[next.nodeID]
		ch <- struct{}{}
		woke := <-s.turnDone
		simplelogger.AssertTrue(woke == next.nodeID)
	}
}

// finishRemaining counts down ctx's waitgroup for every node still
// registered when Run stops driving the clock: the simtime horizon (or an
// empty queue) means these nodes will never be woken again, even though
// they never called Finish themselves.
func (s *Scheduler) finishRemaining() {
	if s.ctx == nil {
		return
	}
	for nodeID := range s.events {
		s.ctx.WaitDone(waitName(nodeID))
	}
}

// Start launches fn as the node's goroutine and blocks until it reaches
// its first suspension point (Sleep or Finish), so Run never races a node
// that hasn't registered its first wakeup yet.
func (s *Scheduler) Start(nodeID int, fn func()) {
	go func() {
		fn()
	}()
	<-s.turnDone
	// the node is now blocked on its wake channel at the timestamp its
	// Sleep recorded; Run wakes it in proper heap order.
	if e, ok := s.events[nodeID]; ok {
		_ = e
	}
}
