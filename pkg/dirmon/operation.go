package dirmon

import (
	"context"

	"github.com/0xmhha/dirmon/pkg/logger"
)

// monitorOperation is one AsyncMonitor call waiting to run on the bridge.
//
// It refers to its monitor by Handle only. The state is looked up when the
// operation runs, so an operation queued before Destroy never keeps the
// state alive and never touches a released one: a failed lookup is reported
// as ErrOperationAborted.
type monitorOperation struct {
	target  Handle
	resolve func(Handle) (*monitorState, bool)
	sched   Poster
	handler Handler
	logger  logger.Logger
}

// run executes on the bridge goroutine.
func (op *monitorOperation) run() {
	state, ok := op.resolve(op.target)
	if !ok {
		op.complete(ErrOperationAborted, Event{})
		return
	}

	ev, err := state.popEvent(context.Background())
	op.complete(err, ev)
}

// complete posts the handler onto the caller's scheduler.
func (op *monitorOperation) complete(err error, ev Event) {
	handler := op.handler
	if postErr := op.sched.Post(func() { handler(err, ev) }); postErr != nil {
		op.logger.Warn("scheduler refused completion, dropping it",
			logger.MonitorKey, op.target.String(),
			"result", err,
			"error", postErr)
	}
}
