package passthrough

import (
	"sync"
	"time"

	"github.com/hidl-lang/hidl/internal/cli"
)

// Waiter blocks until a registration notification for one service
// arrives. Once OnRegistration has fired, every later Wait returns
// immediately.
type Waiter struct {
	fqName   string
	instance string
	log      *cli.Logger

	mu         sync.Mutex
	registered bool
	done       chan struct{}
}

func NewWaiter(fqName, instance string, log *cli.Logger) *Waiter {
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	return &Waiter{
		fqName:   fqName,
		instance: instance,
		log:      log,
		done:     make(chan struct{}),
	}
}

// OnRegistration is the notification callback. It is idempotent.
func (w *Waiter) OnRegistration() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.registered {
		return
	}
	w.registered = true
	close(w.done)
}

// Wait blocks until the registration arrives, logging once per second
// while it has not. There is no cancellation; callers that give up are
// expected to exit the process.
func (w *Waiter) Wait() {
	for {
		w.mu.Lock()
		if w.registered {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		case <-time.After(time.Second):
			w.log.Warn("waited one second for %s/%s", w.fqName, w.instance)
		}
	}
}
