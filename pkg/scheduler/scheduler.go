// Package scheduler runs the steps of a resolved plan, in parallel where
// the dependency graph allows.
//
// A step starts only after every one of its dependencies succeeded. When a
// step fails, everything that depends on it, directly or not, is skipped
// without being started; steps unrelated to the failure keep going.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/arthur-debert/cellar/pkg/deps"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Outcome is how a step ended.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Skipped
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Canceled:
		return "canceled"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Task performs one step.
type Task func(ctx context.Context, step deps.Step) error

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
	// BlockedBy names the failed dependency that caused a skip.
	BlockedBy string
}

// Report holds every step's result in plan order.
type Report struct {
	Results []StepResult
}

// Result returns the result for name.
func (r *Report) Result(name string) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return StepResult{}, false
}

// Count returns how many steps ended with o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Err combines the errors of failed and canceled steps, or returns nil.
// Skipped steps are a consequence, not a cause, and are left out.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Results {
		if res.Outcome == Failed || res.Outcome == Canceled {
			result = multierror.Append(result, res.Err)
		}
	}
	return result.ErrorOrNil()
}

// Options configures a Scheduler.
type Options struct {
	// Concurrency bounds how many steps run at once. Defaults to 1.
	Concurrency int
	Logger      *zerolog.Logger
}

// Scheduler runs plans.
type Scheduler struct {
	concurrency int64
	logger      zerolog.Logger
}

// New creates a scheduler.
func New(opts Options) *Scheduler {
	c := int64(opts.Concurrency)
	if c < 1 {
		c = 1
	}
	return &Scheduler{
		concurrency: c,
		logger:      logging.OrDefault(opts.Logger, "scheduler"),
	}
}

type finished struct {
	index int
	res   StepResult
}

// Run executes plan with task and waits for every step to finish or be
// skipped.
func (s *Scheduler) Run(ctx context.Context, plan *deps.Plan, task Task) *Report {
	n := len(plan.Steps)
	report := &Report{Results: make([]StepResult, n)}
	if n == 0 {
		return report
	}

	index := make(map[string]int, n)
	for i, st := range plan.Steps {
		index[st.Name()] = i
	}
	pending := make([]int, n)
	dependents := make([][]int, n)
	for i, st := range plan.Steps {
		pending[i] = len(st.Deps)
		for _, d := range st.Deps {
			j := index[d]
			dependents[j] = append(dependents[j], i)
		}
	}

	sem := semaphore.NewWeighted(s.concurrency)
	done := make(chan finished)
	resolved := make([]bool, n)
	remaining := n

	launch := func(i int) {
		step := plan.Steps[i]
		go func() {
			res := StepResult{Name: step.Name()}
			if err := sem.Acquire(ctx, 1); err != nil {
				res.Outcome = Canceled
				res.Err = errors.Wrapf(err, errors.ErrCanceled, "%s was not started", step.Name()).
					WithDetail(errors.DetailFormula, step.Name())
				done <- finished{i, res}
				return
			}
			defer sem.Release(1)

			s.logger.Debug().Str("formula", step.Name()).Msg("Step started")
			start := time.Now()
			err := task(ctx, step)
			res.Duration = time.Since(start)
			switch {
			case err == nil:
				res.Outcome = Succeeded
			case errors.IsErrorCode(err, errors.ErrCanceled):
				res.Outcome = Canceled
			default:
				res.Outcome = Failed
			}
			res.Err = err
			done <- finished{i, res}
		}()
	}

	var skip func(i int, cause string)
	skip = func(i int, cause string) {
		for _, d := range dependents[i] {
			if resolved[d] {
				continue
			}
			resolved[d] = true
			remaining--
			report.Results[d] = StepResult{
				Name:      plan.Steps[d].Name(),
				Outcome:   Skipped,
				BlockedBy: cause,
			}
			s.logger.Warn().Str("formula", plan.Steps[d].Name()).Str("blocked_by", cause).Msg("Skipping step")
			skip(d, cause)
		}
	}

	for i := range plan.Steps {
		if pending[i] == 0 {
			launch(i)
		}
	}

	for remaining > 0 {
		f := <-done
		report.Results[f.index] = f.res
		resolved[f.index] = true
		remaining--

		if f.res.Outcome != Succeeded {
			s.logger.Debug().Str("formula", f.res.Name).Str("outcome", f.res.Outcome.String()).Msg("Step did not succeed")
			skip(f.index, f.res.Name)
			continue
		}
		for _, d := range dependents[f.index] {
			pending[d]--
			if pending[d] == 0 && !resolved[d] {
				launch(d)
			}
		}
	}
	return report
}
