package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/cellar/pkg/runner"
)

// FakeRunner is a runner.Runner that records commands instead of running
// them. Handler, when set, decides each command's outcome; a non-nil
// error is reported as a failed exit with Output as the tool's output.
type FakeRunner struct {
	Handler func(ctx context.Context, cmd runner.Command) (output string, err error)

	mu       sync.Mutex
	commands []runner.Command
}

// Run implements runner.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return runner.Result{}, nil
	}
	out, err := f.Handler(ctx, cmd)
	if err == nil {
		return runner.Result{Output: out}, nil
	}

	rerr := &runner.Error{
		Cmdline:  cmd.Cmdline(),
		ExitCode: 1,
		Output:   out,
		Err:      err,
	}
	if ctx.Err() != nil {
		rerr.ExitCode = -1
		rerr.Canceled = ctx.Err() == context.Canceled
		rerr.Timeout = ctx.Err() == context.DeadlineExceeded
	}
	return runner.Result{ExitCode: rerr.ExitCode, Output: out}, rerr
}

// Commands returns every command run so far.
func (f *FakeRunner) Commands() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.commands...)
}

// Names returns the program name of every command run so far.
func (f *FakeRunner) Names() []string {
	var out []string
	for _, c := range f.Commands() {
		out = append(out, c.Name)
	}
	return out
}

var _ runner.Runner = (*FakeRunner)(nil)
