package deletion

import (
	"slices"

	"github.com/gogpu/gpuframe/gpucore"
)

// Queue is an ordered list of deferred actions.
type Queue struct {
	dev     gpucore.Device
	name    string
	actions []Action
	flushed uint64
}

// NewQueue returns an empty queue that runs actions against dev.
func NewQueue(dev gpucore.Device, name string) *Queue {
	return &Queue{dev: dev, name: name}
}

// Push appends an action.
func (q *Queue) Push(a Action) {
	q.actions = append(q.actions, a)
}

// PushFunction appends a cleanup closure. The closure should capture plain
// handles, not owning references.
func (q *Queue) PushFunction(fn func()) {
	q.Push(Func("", fn))
}

// Len returns the number of queued actions.
func (q *Queue) Len() int { return len(q.actions) }

// Flushed returns the total number of actions run by Flush.
func (q *Queue) Flushed() uint64 { return q.flushed }

// Actions returns a copy of the queued actions in insertion order.
func (q *Queue) Actions() []Action { return slices.Clone(q.actions) }

// Flush runs every queued action in reverse insertion order and empties the
// queue. Actions that fail are logged and skipped.
func (q *Queue) Flush() {
	if len(q.actions) == 0 {
		return
	}
	actions := q.actions
	q.actions = nil
	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i].Run(q.dev); err != nil {
			slogger().Warn("deletion: action failed", "queue", q.name, "action", actions[i].String(), "err", err)
		}
	}
	q.flushed += uint64(len(actions))
	slogger().Debug("deletion: flushed", "queue", q.name, "actions", len(actions))
}
