package ports

// TicksPerSecond is the fixed cadence of the world scheduler.
const TicksPerSecond = 20

// TaskHandle is an opaque handle to a scheduled recurring or delayed task.
// Cancel is idempotent: cancelling a finished or already-cancelled handle is
// a no-op. Cancel stops future runs but never undoes completed ones.
type TaskHandle interface {
	Cancel()
	Cancelled() bool
}

// Scheduler is the single-threaded world scheduler. All world mutation is
// confined to the one goroutine that executes Run/RunEvery/RunLater
// callbacks ("the main thread"); RunAsync work must never touch the world
// directly and hands results back via Run.
type Scheduler interface {
	// Run executes fn on the main thread. Called from the main thread it
	// runs fn inline; otherwise fn is queued.
	Run(fn func())
	// RunAsync executes fn on a worker goroutine.
	RunAsync(fn func())
	// RunLater runs fn once on the main thread after delayTicks.
	RunLater(delayTicks int64, fn func()) TaskHandle
	// RunEvery runs fn on the main thread every periodTicks until cancelled.
	RunEvery(periodTicks int64, fn func()) TaskHandle
	// OnMainThread reports whether the caller is the main thread.
	OnMainThread() bool
}
