package layers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrPoolExhausted is returned when an allocation cannot be satisfied
// within the pool's memory budget even after a synchronous
// memory-optimization pass.
var ErrPoolExhausted = errors.New("layers: surface pool budget exhausted")

// bucketSizes are the power-of-two-ish size classes surfaces are grouped
// by. A request is served from the smallest class enclosing both
// dimensions; larger requests get dedicated unpooled allocations.
var bucketSizes = [...]int{256, 512, 1024, 2048}

// CleanupPriority orders deferred cleanup work. Higher priorities run
// first within a scheduler pass.
type CleanupPriority uint8

const (
	CleanupLow CleanupPriority = iota
	CleanupMedium
	CleanupHigh
	CleanupCritical
)

type cleanupTask struct {
	priority CleanupPriority
	due      time.Time
	seq      uint64
	fn       func()
}

// SurfacePool allocates, recycles and disposes fixed-size raster
// surfaces. It tracks in-use versus free sets, enforces a memory budget,
// and runs scheduled and emergency reclamation. The pool is the sole
// arbiter of surface reuse: a surface must be released back exactly once,
// and never used after release.
//
// SurfacePool is safe for concurrent use, though the rest of the package
// assumes a single logical mutator thread.
type SurfacePool struct {
	mu      sync.Mutex
	cfg     PoolConfig
	free    [len(bucketSizes)][]*Surface
	inUse   map[*Surface]int // surface -> bucket index, -1 for unpooled
	tasks   []cleanupTask
	taskSeq uint64

	// stats
	allocated int // total surfaces ever allocated
	reused    int // acquisitions served from a free list
}

// NewSurfacePool creates a pool with the given configuration. Zero-value
// fields fall back to DefaultConfig().Pool.
func NewSurfacePool(cfg PoolConfig) *SurfacePool {
	def := DefaultConfig().Pool
	if cfg.BucketCap <= 0 {
		cfg.BucketCap = def.BucketCap
	}
	if cfg.BudgetBytes <= 0 {
		cfg.BudgetBytes = def.BudgetBytes
	}
	if cfg.OptimizeThreshold <= 0 || cfg.OptimizeThreshold > 1 {
		cfg.OptimizeThreshold = def.OptimizeThreshold
	}
	if cfg.SchedulerInterval <= 0 {
		cfg.SchedulerInterval = def.SchedulerInterval
	}
	return &SurfacePool{
		cfg:   cfg,
		inUse: map[*Surface]int{},
	}
}

// bucketIndex returns the index of the smallest enclosing size class, or
// -1 when the request exceeds the largest class.
func bucketIndex(w, h int) int {
	side := maxInt(w, h)
	for i, s := range bucketSizes {
		if side <= s {
			return i
		}
	}
	return -1
}

// Acquire returns a cleared surface of exactly w x h pixels, reusing a
// free surface of the matching size bucket when one exists. The caller
// owns the surface until it releases it back to the pool.
func (p *SurfacePool) Acquire(w, h int) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("layers: invalid surface size %dx%d", w, h)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	need := int64(w) * int64(h) * 4
	if p.usageLocked()+need > p.cfg.BudgetBytes {
		// Synchronous memory optimization before failing.
		p.optimizeLocked()
		if p.usageLocked()+need > p.cfg.BudgetBytes {
			return nil, fmt.Errorf("%w: need %d bytes, usage %d of %d",
				ErrPoolExhausted, need, p.usageLocked(), p.cfg.BudgetBytes)
		}
	}

	bi := bucketIndex(w, h)
	if bi >= 0 && len(p.free[bi]) > 0 {
		n := len(p.free[bi]) - 1
		s := p.free[bi][n]
		p.free[bi][n] = nil
		p.free[bi] = p.free[bi][:n]
		s.Resize(w, h)
		p.inUse[s] = bi
		p.reused++
		return s, nil
	}

	s := NewSurface(w, h)
	p.inUse[s] = bi
	p.allocated++
	return s, nil
}

// Release returns a surface to the pool. If the matching bucket's free
// list is below its cap the surface is cleared and kept for reuse,
// otherwise it is disposed immediately. Releasing a surface the pool does
// not consider in use (double release, or a surface from elsewhere) is a
// programmer error: it is logged and ignored rather than corrupting the
// free lists.
func (p *SurfacePool) Release(s *Surface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	bi, ok := p.inUse[s]
	if !ok {
		Logger().Warn("surface released twice or not pool-owned",
			"size", fmt.Sprintf("%dx%d", s.Width(), s.Height()))
		return
	}
	delete(p.inUse, s)

	if bi < 0 || len(p.free[bi]) >= p.cfg.BucketCap {
		s.Resize(0, 0)
		return
	}
	s.Clear()
	p.free[bi] = append(p.free[bi], s)
}

// Adopt registers an externally allocated surface (a history restore's
// deep copy, for example) as pool-owned and in use, so it participates in
// budget accounting and can be released normally. Adopting a surface the
// pool already tracks is logged and ignored.
func (p *SurfacePool) Adopt(s *Surface) {
	if s == nil || s.IsDisposed() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inUse[s]; ok {
		Logger().Warn("surface adopted twice",
			"size", fmt.Sprintf("%dx%d", s.Width(), s.Height()))
		return
	}
	p.inUse[s] = bucketIndex(s.Width(), s.Height())
	p.allocated++
}

// ScheduleCleanup registers a deferred cleanup callback that becomes due
// after delay. Due callbacks execute on the next scheduler pass, highest
// priority first.
func (p *SurfacePool) ScheduleCleanup(priority CleanupPriority, delay time.Duration, fn func()) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskSeq++
	p.tasks = append(p.tasks, cleanupTask{
		priority: priority,
		due:      time.Now().Add(delay),
		seq:      p.taskSeq,
		fn:       fn,
	})
}

// RunScheduled executes one scheduler pass at the given time: due cleanup
// callbacks run in priority order (critical first, FIFO within a
// priority), then free lists are halved if estimated usage exceeds the
// configured budget fraction. Hosts on a cooperative loop call this
// directly; StartScheduler wraps it in a goroutine for hosts that prefer
// that.
func (p *SurfacePool) RunScheduled(now time.Time) {
	p.mu.Lock()
	var due []cleanupTask
	var pending []cleanupTask
	for _, t := range p.tasks {
		if !t.due.After(now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	p.tasks = pending
	overBudget := float64(p.usageLocked()) > p.cfg.OptimizeThreshold*float64(p.cfg.BudgetBytes)
	if overBudget {
		p.optimizeLocked()
	}
	p.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].priority != due[j].priority {
			return due[i].priority > due[j].priority
		}
		return due[i].seq < due[j].seq
	})
	// Callbacks run outside the lock; they may re-enter the pool.
	for _, t := range due {
		t.fn()
	}
}

// StartScheduler runs RunScheduled at the configured interval until the
// context is canceled.
func (p *SurfacePool) StartScheduler(ctx context.Context) {
	interval := p.cfg.SchedulerInterval
	Logger().Info("surface pool scheduler started", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				Logger().Info("surface pool scheduler stopped")
				return
			case now := <-ticker.C:
				p.RunScheduled(now)
			}
		}
	}()
}

// OptimizeMemory proactively halves each bucket's free-list population.
func (p *SurfacePool) OptimizeMemory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.optimizeLocked()
}

func (p *SurfacePool) optimizeLocked() {
	for bi := range p.free {
		keep := len(p.free[bi]) / 2
		for _, s := range p.free[bi][keep:] {
			s.Resize(0, 0)
		}
		p.free[bi] = p.free[bi][:keep]
	}
	Logger().Debug("surface pool optimized", "usage_bytes", p.usageLocked())
}

// EmergencyCleanup disposes every pooled free surface and runs all
// pending cleanup callbacks unconditionally, regardless of their due
// times. Used when the host signals severe memory pressure.
func (p *SurfacePool) EmergencyCleanup() {
	p.mu.Lock()
	for bi := range p.free {
		for _, s := range p.free[bi] {
			s.Resize(0, 0)
		}
		p.free[bi] = nil
	}
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].priority != tasks[j].priority {
			return tasks[i].priority > tasks[j].priority
		}
		return tasks[i].seq < tasks[j].seq
	})
	for _, t := range tasks {
		t.fn()
	}
	Logger().Warn("surface pool emergency cleanup executed", "callbacks", len(tasks))
}

// PoolStats is a point-in-time summary of pool state.
type PoolStats struct {
	InUse      int
	Free       int
	Allocated  int
	Reused     int
	UsageBytes int64
}

// Stats returns current pool statistics.
func (p *SurfacePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := 0
	for bi := range p.free {
		free += len(p.free[bi])
	}
	return PoolStats{
		InUse:      len(p.inUse),
		Free:       free,
		Allocated:  p.allocated,
		Reused:     p.reused,
		UsageBytes: p.usageLocked(),
	}
}

// usageLocked estimates the aggregate bytes held by pooled surfaces.
func (p *SurfacePool) usageLocked() int64 {
	var total int64
	for bi := range p.free {
		for _, s := range p.free[bi] {
			total += int64(s.SizeBytes())
		}
	}
	for s := range p.inUse {
		total += int64(s.SizeBytes())
	}
	return total
}
