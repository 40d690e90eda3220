// Package scheduler provides the task queues dirmon runs callbacks on.
//
// A Queue is an unbounded FIFO of tasks that accepts submissions from any
// goroutine. A Loop is a cooperative scheduler: tasks posted to it run one at
// a time, in submission order, on the goroutine that calls Run.
//
// Example usage:
//
//	loop := scheduler.NewLoop(logger.Noop())
//
//	go func() {
//	    _ = loop.Post(func() { fmt.Println("runs on the loop goroutine") })
//	}()
//
//	if err := loop.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package scheduler

// Task is a unit of work executed by a Loop or a queue consumer.
type Task func()

// State describes where a Loop is in its lifecycle.
type State int32

// Loop states.
const (
	StateIdle State = iota
	StateRunning
	StateTerminating
	StateTerminated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
