package post

import (
	"sync"

	"github.com/xiaonanln/gwscript/engine/gwutils"
)

// PostCallback is the type of functions to be posted
type PostCallback func()

// Queue holds callbacks to be run by the frame loop
//
// Post might be called from other goroutines, Tick must only be called by the frame loop.
type Queue struct {
	lock      sync.Mutex
	callbacks []PostCallback
}

// Post a callback which will be executed by the next Tick
func (q *Queue) Post(f PostCallback) {
	q.lock.Lock()
	q.callbacks = append(q.callbacks, f)
	q.lock.Unlock()
}

// Len returns the number of callbacks pending
func (q *Queue) Len() int {
	q.lock.Lock()
	n := len(q.callbacks)
	q.lock.Unlock()
	return n
}

// Tick runs all posted callbacks, including callbacks posted while ticking
func (q *Queue) Tick() {
	for {
		q.lock.Lock()
		if len(q.callbacks) == 0 {
			q.lock.Unlock()
			break
		}
		callbacksCopy := q.callbacks
		q.callbacks = make([]PostCallback, 0, len(callbacksCopy))
		q.lock.Unlock()

		for _, f := range callbacksCopy {
			gwutils.RunPanicless(f)
		}
	}
}

var defaultQueue = &Queue{}

// Post a callback to the default queue
func Post(f PostCallback) {
	defaultQueue.Post(f)
}

// Tick runs all callbacks of the default queue
func Tick() {
	defaultQueue.Tick()
}
