package chrometrace

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitRegistry holds cleanup hooks per process id.
// A hook is registered at most once per (pid, key) and runs at most once.
type exitRegistry struct {
	hooks map[int][]exitHook
	mu    sync.Mutex
}

type exitHook struct {
	key any
	fn  func()
}

var exits = &exitRegistry{hooks: make(map[int][]exitHook)}

// register adds fn for pid unless key is already registered for pid.
func (r *exitRegistry) register(pid int, key any, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.hooks[pid] {
		if h.key == key {
			return false
		}
	}
	r.hooks[pid] = append(r.hooks[pid], exitHook{key: key, fn: fn})
	return true
}

// unregister removes the hook for (pid, key).
func (r *exitRegistry) unregister(pid int, key any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hooks := r.hooks[pid]
	for i, h := range hooks {
		if h.key == key {
			r.hooks[pid] = append(hooks[:i], hooks[i+1:]...)
			break
		}
	}
	if len(r.hooks[pid]) == 0 {
		delete(r.hooks, pid)
	}
}

// run executes and clears the hooks of pid in registration order.
func (r *exitRegistry) run(pid int) int {
	r.mu.Lock()
	hooks := r.hooks[pid]
	delete(r.hooks, pid)
	r.mu.Unlock()

	for _, h := range hooks {
		h.fn()
	}
	return len(hooks)
}

func (r *exitRegistry) registered(pid int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks[pid])
}

// RunExitHooks flushes and closes every session still enabled in this
// process. It is safe to call more than once.
func RunExitHooks() {
	exits.run(os.Getpid())
}

// Exit runs the exit hooks and terminates the process with code.
func Exit(code int) {
	RunExitHooks()
	os.Exit(code)
}

// HandleSignals runs the exit hooks and exits with status 1 when one of sigs
// arrives (SIGINT and SIGTERM when none are given). The returned function
// stops watching; cancelling ctx does the same.
func HandleSignals(ctx context.Context, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}

	go func() {
		select {
		case <-ch:
			Exit(1)
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop
}
