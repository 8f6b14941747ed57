package layers

import (
	"errors"
	"testing"
	"time"
)

func TestPoolAcquireRelease(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})

	s, err := p.Acquire(100, 50)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s.Width() != 100 || s.Height() != 50 {
		t.Errorf("acquired %dx%d, want 100x50", s.Width(), s.Height())
	}
	p.Release(s)

	stats := p.Stats()
	if stats.InUse != 0 || stats.Free != 1 {
		t.Errorf("stats after release = %+v", stats)
	}
}

func TestPoolReusesFreedSurface(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})

	s1, _ := p.Acquire(200, 200)
	s1.Fill(RGB(1, 0, 0))
	p.Release(s1)

	s2, _ := p.Acquire(128, 128)
	if s2 != s1 {
		t.Error("same-bucket acquire did not reuse the freed surface")
	}
	if s2.Width() != 128 || s2.Height() != 128 {
		t.Errorf("reused surface is %dx%d, want 128x128", s2.Width(), s2.Height())
	}
	if got := s2.GetPixel(0, 0); got != Transparent {
		t.Errorf("reused surface not cleared: %+v", got)
	}
	if p.Stats().Reused != 1 {
		t.Errorf("Reused = %d, want 1", p.Stats().Reused)
	}
}

func TestPoolReuseBound(t *testing.T) {
	// After N acquire/release cycles in one bucket with N below the
	// bucket cap, total allocations never exceed cap plus in-use count.
	p := NewSurfacePool(PoolConfig{BucketCap: 8})
	for i := 0; i < 20; i++ {
		s, err := p.Acquire(256, 256)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		p.Release(s)
	}
	stats := p.Stats()
	if stats.Allocated > 8+stats.InUse {
		t.Errorf("allocated %d surfaces over %d cycles, cap 8", stats.Allocated, 20)
	}
}

func TestPoolBucketCapDisposes(t *testing.T) {
	p := NewSurfacePool(PoolConfig{BucketCap: 2})

	var held []*Surface
	for i := 0; i < 4; i++ {
		s, _ := p.Acquire(64, 64)
		held = append(held, s)
	}
	for _, s := range held {
		p.Release(s)
	}
	if free := p.Stats().Free; free != 2 {
		t.Errorf("free = %d, want bucket cap 2", free)
	}
	// Surfaces over the cap were disposed on release.
	if !held[3].IsDisposed() {
		t.Error("over-cap release kept backing storage")
	}
}

func TestPoolDoubleRelease(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})
	s, _ := p.Acquire(64, 64)
	p.Release(s)
	p.Release(s) // logged and ignored

	if free := p.Stats().Free; free != 1 {
		t.Errorf("free after double release = %d, want 1", free)
	}
}

func TestPoolOversizedUnpooled(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})
	s, err := p.Acquire(4096, 4096)
	if err != nil {
		t.Fatalf("oversized acquire: %v", err)
	}
	p.Release(s)
	if !s.IsDisposed() {
		t.Error("oversized surface was pooled instead of disposed")
	}
	if free := p.Stats().Free; free != 0 {
		t.Errorf("free = %d, want 0", free)
	}
}

func TestPoolBudgetExhaustion(t *testing.T) {
	p := NewSurfacePool(PoolConfig{BudgetBytes: 256 * 256 * 4})

	s1, err := p.Acquire(256, 256)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := p.Acquire(256, 256); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("second acquire err = %v, want ErrPoolExhausted", err)
	}
	p.Release(s1)
}

func TestPoolAdopt(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})
	s := NewSurface(64, 64)
	p.Adopt(s)

	if p.Stats().InUse != 1 {
		t.Errorf("InUse after adopt = %d, want 1", p.Stats().InUse)
	}
	p.Release(s)
	if p.Stats().InUse != 0 {
		t.Errorf("InUse after release = %d, want 0", p.Stats().InUse)
	}
}

func TestPoolScheduledCleanupPriority(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})

	var ran []string
	p.ScheduleCleanup(CleanupLow, 0, func() { ran = append(ran, "low") })
	p.ScheduleCleanup(CleanupCritical, 0, func() { ran = append(ran, "critical") })
	p.ScheduleCleanup(CleanupMedium, 0, func() { ran = append(ran, "medium") })
	p.ScheduleCleanup(CleanupLow, time.Hour, func() { ran = append(ran, "future") })

	p.RunScheduled(time.Now().Add(time.Second))

	want := []string{"critical", "medium", "low"}
	if len(ran) != len(want) {
		t.Fatalf("ran %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran %v, want %v", ran, want)
		}
	}
}

func TestPoolEmergencyCleanup(t *testing.T) {
	p := NewSurfacePool(PoolConfig{})

	s, _ := p.Acquire(128, 128)
	p.Release(s)

	ran := false
	p.ScheduleCleanup(CleanupLow, time.Hour, func() { ran = true })

	p.EmergencyCleanup()

	if !ran {
		t.Error("emergency cleanup skipped a pending callback")
	}
	if free := p.Stats().Free; free != 0 {
		t.Errorf("free after emergency cleanup = %d, want 0", free)
	}
	if !s.IsDisposed() {
		t.Error("pooled surface survived emergency cleanup")
	}
}

func TestPoolOptimizeHalvesFreeLists(t *testing.T) {
	p := NewSurfacePool(PoolConfig{BucketCap: 8})

	var held []*Surface
	for i := 0; i < 6; i++ {
		s, _ := p.Acquire(64, 64)
		held = append(held, s)
	}
	for _, s := range held {
		p.Release(s)
	}
	p.OptimizeMemory()
	if free := p.Stats().Free; free != 3 {
		t.Errorf("free after optimize = %d, want 3", free)
	}
}
