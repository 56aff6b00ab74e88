package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
	"go.uber.org/multierr"
)

// ErrForcedExit is returned by Runner.Wait when stop is requested twice.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to a Runnable. Errors from a named Runnable are
// prefixed with the name by Runner.Wait.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Runner starts Runnables in goroutines sharing one cancelable context.
type Runner struct {
	// Context is passed to the Runnables started by Go.
	Context context.Context
	// FailFast cancels Context as soon as one Runnable fails.
	FailFast bool
	Runners  []Runnable

	cancel  context.CancelFunc
	results chan error
	forced  chan struct{}
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		results: make(chan error, 4),
		forced:  make(chan struct{}),
	}
}

// HandleSignals cancels the Runner on SIGINT or SIGTERM. A second signal
// makes Wait return ErrForcedExit.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, exiting")
		close(r.forced)
	}()
	return r
}

// Cancel stops all Runnables.
func (r *Runner) Cancel() {
	r.cancel()
}

// Go starts Runnables with Runner.Context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	return r.GoWith(r.Context, runnables...)
}

// GoWith starts Runnables with a specific context.
func (r *Runner) GoWith(ctx context.Context, runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name, named := "", false
		if n, ok := runnable.(Named); ok {
			name, named = n.Name(), true
		} else {
			name = "#" + strconv.Itoa(len(r.Runners))
		}
		r.Runners = append(r.Runners, runnable)
		go r.run(ctx, runnable, name, named)
	}
	return r
}

func (r *Runner) run(ctx context.Context, runnable Runnable, name string, named bool) {
	glog.V(4).Infof("runner %s started", name)
	err := runnable.Run(ctx)
	switch {
	case err == nil || errors.Is(err, context.Canceled):
		glog.V(4).Infof("runner %s stopped", name)
	default:
		glog.Errorf("runner %s failed: %v", name, err)
		if named {
			err = fmt.Errorf("%s: %w", name, err)
		}
		if r.FailFast {
			r.cancel()
		}
	}
	r.results <- err
}

// Wait blocks until all started Runnables return and combines their errors.
// Cancellation is not an error.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs error
	for range r.Runners {
		select {
		case <-r.forced:
			return ErrForcedExit
		case err := <-r.results:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

// RunWithContextCancel runs fn which is unaware of context. onCancel is
// called when ctx is done before fn returns, and fn is still waited for.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-done
	return ctx.Err()
}

// RunWithContext is RunWithContextCancel without a cancel callback.
func RunWithContext(ctx context.Context, fn func() error) error {
	return RunWithContextCancel(ctx, nil, fn)
}

// RunWithContextCloser closes closer on cancel or after fn returns,
// whichever comes first.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	closed := false
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}
