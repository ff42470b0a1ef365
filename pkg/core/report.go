package core

import (
	"time"

	"github.com/arthur-debert/cellar/pkg/deps"
	"github.com/arthur-debert/cellar/pkg/install"
	"github.com/arthur-debert/cellar/pkg/scheduler"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/hashicorp/go-multierror"
)

// StepReport is what happened to one formula of an install.
type StepReport struct {
	Name    string
	Version string
	Outcome scheduler.Outcome
	// AlreadyInstalled is set when the formula was installed before this
	// run and nothing was done.
	AlreadyInstalled bool
	BuildOnly        bool
	// Pruned is set when the formula was a build dependency removed again
	// after its dependents were built.
	Pruned   bool
	PruneErr error
	Err      error
	// BlockedBy names the failed dependency of a skipped formula.
	BlockedBy string
	Duration  time.Duration
	Manifest  *types.InstallManifest
	Caveats   string
}

// Report is the result of Engine.Install.
type Report struct {
	Plan  *deps.Plan
	Steps []*StepReport
}

func newReport(plan *deps.Plan, sched *scheduler.Report, results map[string]*install.Result) *Report {
	r := &Report{Plan: plan, Steps: make([]*StepReport, len(plan.Steps))}
	for i, step := range plan.Steps {
		res := sched.Results[i]
		s := &StepReport{
			Name:      step.Name(),
			Version:   step.Formula.Version,
			Outcome:   res.Outcome,
			BuildOnly: step.BuildOnly,
			Err:       res.Err,
			BlockedBy: res.BlockedBy,
			Duration:  res.Duration,
			Caveats:   step.Formula.Caveats,
		}
		if ir := results[step.Name()]; ir != nil {
			s.AlreadyInstalled = ir.AlreadyInstalled
			s.Manifest = ir.Manifest
			if ir.Manifest != nil && ir.Manifest.Caveats != "" {
				s.Caveats = ir.Manifest.Caveats
			}
		}
		r.Steps[i] = s
	}
	return r
}

func (r *Report) step(name string) *StepReport {
	for _, s := range r.Steps {
		if s.Name == name {
			return s
		}
	}
	return &StepReport{Name: name}
}

// Step returns the report for name.
func (r *Report) Step(name string) (*StepReport, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Installed lists the formulas this run installed, in plan order.
func (r *Report) Installed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Outcome == scheduler.Succeeded && !s.AlreadyInstalled {
			out = append(out, s.Name)
		}
	}
	return out
}

// Err combines the errors of failed and canceled formulas and of build
// dependencies that could not be pruned.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, s := range r.Steps {
		if s.Outcome == scheduler.Failed || s.Outcome == scheduler.Canceled {
			result = multierror.Append(result, s.Err)
		}
		if s.PruneErr != nil {
			result = multierror.Append(result, s.PruneErr)
		}
	}
	return result.ErrorOrNil()
}
