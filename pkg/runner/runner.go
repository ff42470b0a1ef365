// Package runner invokes external build tools, capturing the tail of their
// output and honouring timeouts and cancellation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/apparentlymart/go-shquot/shquot"
	"github.com/armon/circbuf"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultOutputLimit is how many trailing bytes of tool output are kept.
const DefaultOutputLimit = 64 * 1024

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is added on top of the current process environment.
	Env   map[string]string
	Stdin io.Reader
	// Timeout bounds the invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Cmdline renders the command for logs and error messages.
func (c Command) Cmdline() string {
	return shquot.POSIXShell(append([]string{c.Name}, c.Args...))
}

// Result describes a finished invocation.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Error is returned when a command could not be started, exited non-zero,
// timed out or was canceled.
type Error struct {
	Cmdline  string
	ExitCode int
	Output   string
	Timeout  bool
	Canceled bool
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timed out", e.Cmdline)
	case e.Canceled:
		return fmt.Sprintf("%s: canceled", e.Cmdline)
	default:
		return fmt.Sprintf("%s: %v", e.Cmdline, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures Exec.
type Options struct {
	// OutputLimit caps captured output. Defaults to DefaultOutputLimit.
	OutputLimit int64
	// WaitDelay is how long to wait for output pipes after the process
	// is killed.
	WaitDelay time.Duration
	Logger    *zerolog.Logger
}

// Exec runs commands with os/exec.
type Exec struct {
	outputLimit int64
	waitDelay   time.Duration
	logger      zerolog.Logger
}

// NewExec creates an os/exec backed runner.
func NewExec(opts Options) *Exec {
	limit := opts.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	wait := opts.WaitDelay
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Exec{
		outputLimit: limit,
		waitDelay:   wait,
		logger:      logging.OrDefault(opts.Logger, "runner"),
	}
}

// Run executes cmd and waits for it.
func (r *Exec) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	buf, err := circbuf.NewBuffer(r.outputLimit)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), envList(c.Env)...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = buf
	cmd.Stderr = buf
	cmd.WaitDelay = r.waitDelay

	logging.LogCommand(r.logger, c.Name, c.Args)
	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		ExitCode: -1,
		Output:   buf.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		r.logger.Debug().
			Str("cmd", c.Cmdline()).
			Dur("duration", res.Duration).
			Msg("Command finished")
		return res, nil
	}

	rerr := &Error{
		Cmdline:  c.Cmdline(),
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Err:      runErr,
	}
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		rerr.Timeout = true
	case errors.Is(ctxErr, context.Canceled):
		rerr.Canceled = true
	}

	r.logger.Debug().
		Err(runErr).
		Str("cmd", rerr.Cmdline).
		Int("exit_code", res.ExitCode).
		Bool("timeout", rerr.Timeout).
		Bool("canceled", rerr.Canceled).
		Msg("Command failed")
	return res, rerr
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

var _ Runner = (*Exec)(nil)
