// Package sim is the in-process world runtime: a single-goroutine tick
// scheduler plus a simulated world state that stands in for the real host
// runtime. Everything that mutates world state runs on the scheduler
// goroutine; the rest of the process only ever posts work to it.
package sim

import (
	"bytes"
	"log"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"chatcraft/internal/app/ports"
)

// Scheduler owns the main world goroutine. Tasks registered with RunEvery
// and RunLater fire on tick boundaries; Run posts a closure for the next
// loop iteration, or runs it inline when already on the main goroutine.
type Scheduler struct {
	interval time.Duration

	queue chan func()
	stop  chan struct{}
	done  chan struct{}

	mainGID atomic.Int64
	tick    atomic.Int64

	// owned by the loop goroutine
	tasks []*task

	startOnce sync.Once
	stopOnce  sync.Once
}

type task struct {
	fn        func()
	nextAt    int64
	period    int64 // 0 for one-shot
	cancelled atomic.Bool
}

func (t *task) Cancel()         { t.cancelled.Store(true) }
func (t *task) Cancelled() bool { return t.cancelled.Load() }

// NewScheduler builds a scheduler at the standard tick cadence. Start must
// be called before any work is posted.
func NewScheduler() *Scheduler {
	return &Scheduler{
		interval: time.Second / ports.TicksPerSecond,
		queue:    make(chan func(), 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the main goroutine. Safe to call once; later calls are
// no-ops.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop shuts the loop down and waits for the current iteration to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) loop() {
	s.mainGID.Store(gid())
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case fn := <-s.queue:
			s.exec(fn)
		case <-ticker.C:
			now := s.tick.Add(1)
			s.runDue(now)
		}
	}
}

// runDue fires every live task whose deadline passed, then compacts the
// task list. Registrations made by a firing task are seen on later ticks.
func (s *Scheduler) runDue(now int64) {
	cur := s.tasks
	s.tasks = nil // registrations made while firing land in a fresh slice
	live := cur[:0]
	for _, t := range cur {
		if t.cancelled.Load() {
			continue
		}
		if t.nextAt <= now {
			s.exec(t.fn)
			if t.period <= 0 || t.cancelled.Load() {
				continue
			}
			t.nextAt = now + t.period
		}
		live = append(live, t)
	}
	s.tasks = append(live, s.tasks...)
}

// exec isolates task panics so a broken handler cannot kill the world loop.
func (s *Scheduler) exec(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("world loop: recovered: %v", rec)
		}
	}()
	fn()
}

// Run executes fn on the main goroutine: inline when already there,
// otherwise queued for the next loop iteration.
func (s *Scheduler) Run(fn func()) {
	if s.OnMainThread() {
		fn()
		return
	}
	select {
	case s.queue <- fn:
	case <-s.stop:
	}
}

// RunAsync executes fn on its own goroutine.
func (s *Scheduler) RunAsync(fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("async task: recovered: %v", rec)
			}
		}()
		fn()
	}()
}

// RunLater schedules fn once, delayTicks from now.
func (s *Scheduler) RunLater(delayTicks int64, fn func()) ports.TaskHandle {
	if delayTicks < 1 {
		delayTicks = 1
	}
	t := &task{fn: fn, period: 0}
	s.register(t, delayTicks)
	return t
}

// RunEvery schedules fn every periodTicks until cancelled. The first run is
// one full period from now.
func (s *Scheduler) RunEvery(periodTicks int64, fn func()) ports.TaskHandle {
	if periodTicks < 1 {
		periodTicks = 1
	}
	t := &task{fn: fn, period: periodTicks}
	s.register(t, periodTicks)
	return t
}

func (s *Scheduler) register(t *task, delay int64) {
	s.Run(func() {
		t.nextAt = s.tick.Load() + delay
		s.tasks = append(s.tasks, t)
	})
}

// OnMainThread reports whether the caller runs on the loop goroutine.
func (s *Scheduler) OnMainThread() bool {
	return s.mainGID.Load() != 0 && gid() == s.mainGID.Load()
}

// CurrentTick is the loop's tick counter, readable from any goroutine.
func (s *Scheduler) CurrentTick() int64 { return s.tick.Load() }

// gid extracts the current goroutine id from the stack header. There is no
// API for this; the header format ("goroutine N [") is stable in practice.
func gid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
