package layers

import "time"

// Task is a unit of deferred work run by the scheduler on its next
// tick, after any pending composition.
type Task func()

// Scheduler coordinates deferred work on a single-threaded cooperative
// model: callers enqueue tasks and request composition passes from the
// same goroutine that calls Tick. Composition requests coalesce; any
// number of requests between ticks yields at most one pass.
type Scheduler struct {
	engine *CompositionEngine
	pool   *SurfacePool

	tasks     []Task
	composite bool
}

// NewScheduler creates a scheduler driving the given engine. pool may
// be nil when pool maintenance is handled elsewhere.
func NewScheduler(engine *CompositionEngine, pool *SurfacePool) *Scheduler {
	return &Scheduler{engine: engine, pool: pool}
}

// Enqueue adds a task to run on the next tick. Tasks run in FIFO order.
func (s *Scheduler) Enqueue(t Task) {
	if t == nil {
		return
	}
	s.tasks = append(s.tasks, t)
}

// RequestComposite marks a composition pass as wanted. Repeated calls
// before the next tick collapse into a single pass.
func (s *Scheduler) RequestComposite() {
	s.composite = true
}

// Pending reports how many tasks are queued.
func (s *Scheduler) Pending() int { return len(s.tasks) }

// Tick runs one scheduler step: queued tasks first, then the coalesced
// composition pass if one was requested, then due pool maintenance.
// Returns the composition result when a pass ran, else nil.
func (s *Scheduler) Tick(now time.Time) *CompositeResult {
	s.drain()

	var res *CompositeResult
	if s.composite {
		s.composite = false
		res = s.engine.Composite()
	}

	if s.pool != nil {
		s.pool.RunScheduled(now)
	}
	return res
}

// drain runs all currently queued tasks. Tasks enqueued while draining
// run on the next tick, keeping a misbehaving task from starving
// composition.
func (s *Scheduler) drain() {
	queued := s.tasks
	s.tasks = nil
	for _, t := range queued {
		func() {
			defer func() {
				if r := recover(); r != nil {
					Logger().Warn("scheduled task panicked", "err", r)
				}
			}()
			t()
		}()
	}
}
