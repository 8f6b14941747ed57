package layers

import (
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) (*LayerStore, *Scheduler, *captureConsumer) {
	t.Helper()
	store, pool := newTestStore(t)
	consumer := &captureConsumer{}
	engine := NewCompositionEngine(store, pool, consumer,
		WithEngineConfig(EngineConfig{Width: 64, Height: 64, ThrottleInterval: time.Millisecond}),
	)
	return store, NewScheduler(engine, pool), consumer
}

func TestSchedulerRunsTasksInOrder(t *testing.T) {
	_, sched, _ := newTestScheduler(t)

	var ran []string
	sched.Enqueue(func() { ran = append(ran, "a") })
	sched.Enqueue(func() { ran = append(ran, "b") })
	sched.Enqueue(func() { ran = append(ran, "c") })
	sched.Enqueue(nil)
	if sched.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", sched.Pending())
	}

	sched.Tick(time.Now())
	if len(ran) != 3 || ran[0] != "a" || ran[1] != "b" || ran[2] != "c" {
		t.Errorf("ran = %v, want [a b c]", ran)
	}
	if sched.Pending() != 0 {
		t.Errorf("pending after tick = %d", sched.Pending())
	}
}

func TestSchedulerDefersTasksEnqueuedWhileDraining(t *testing.T) {
	_, sched, _ := newTestScheduler(t)

	var ran []string
	sched.Enqueue(func() {
		ran = append(ran, "outer")
		sched.Enqueue(func() { ran = append(ran, "inner") })
	})

	sched.Tick(time.Now())
	if len(ran) != 1 || ran[0] != "outer" {
		t.Fatalf("first tick ran %v, want [outer]", ran)
	}
	if sched.Pending() != 1 {
		t.Fatalf("inner task not queued for next tick")
	}

	sched.Tick(time.Now())
	if len(ran) != 2 || ran[1] != "inner" {
		t.Errorf("second tick ran %v, want [outer inner]", ran)
	}
}

func TestSchedulerCoalescesCompositeRequests(t *testing.T) {
	store, sched, consumer := newTestScheduler(t)
	id, _ := store.CreateLayer(ContentPaint, "")
	fillLayer(t, store, id, RGBA{R: 1, A: 1})

	sched.RequestComposite()
	sched.RequestComposite()
	sched.RequestComposite()

	res := sched.Tick(time.Now())
	if res == nil {
		t.Fatal("tick with pending request returned no result")
	}
	if len(consumer.updates) != 1 {
		t.Errorf("published %d textures, want 1", len(consumer.updates))
	}

	if res := sched.Tick(time.Now()); res != nil {
		t.Error("tick without request ran a pass")
	}
}

func TestSchedulerContainsTaskPanic(t *testing.T) {
	store, sched, _ := newTestScheduler(t)
	store.CreateLayer(ContentPaint, "")

	var ran bool
	sched.Enqueue(func() { panic("boom") })
	sched.Enqueue(func() { ran = true })
	sched.RequestComposite()

	res := sched.Tick(time.Now())
	if !ran {
		t.Error("task after panicking task did not run")
	}
	if res == nil {
		t.Error("composition skipped after task panic")
	}
}

func TestSchedulerRunsPoolMaintenance(t *testing.T) {
	store, pool := newTestStore(t)
	engine := NewCompositionEngine(store, pool, nil,
		WithEngineConfig(EngineConfig{Width: 64, Height: 64, ThrottleInterval: time.Millisecond}),
	)
	sched := NewScheduler(engine, pool)

	var cleaned bool
	pool.ScheduleCleanup(CleanupLow, 0, func() { cleaned = true })

	sched.Tick(time.Now().Add(time.Second))
	if !cleaned {
		t.Error("due pool cleanup did not run on tick")
	}
}
