package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arthur-debert/cellar/pkg/deps"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/testutil"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalog map[string]*types.Formula

func (c catalog) Get(name string) (*types.Formula, error) {
	f, ok := c[name]
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "%s not found", name)
	}
	return f, nil
}

func plan(t *testing.T, roots []string, formulas ...*types.Formula) *deps.Plan {
	t.Helper()
	c := catalog{}
	for _, f := range formulas {
		c[f.Name] = f
	}
	g, err := deps.Build(c, roots, nil)
	require.NoError(t, err)
	p, err := g.Resolve(nil)
	require.NoError(t, err)
	return p
}

func TestRunRespectsDependencies(t *testing.T) {
	p := plan(t, []string{"app"},
		testutil.NewFormula("zlib").Build(),
		testutil.NewFormula("openssl").Depends("zlib").Build(),
		testutil.NewFormula("readline").Build(),
		testutil.NewFormula("app").Depends("openssl", "readline").BuildDepends("zlib").Build(),
	)

	var (
		mu       sync.Mutex
		finished = map[string]bool{}
	)
	task := func(ctx context.Context, step deps.Step) error {
		mu.Lock()
		for _, d := range step.Deps {
			assert.True(t, finished[d], "%s started before %s finished", step.Name(), d)
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		finished[step.Name()] = true
		mu.Unlock()
		return nil
	}

	report := New(Options{Concurrency: 4}).Run(context.Background(), p, task)
	require.NoError(t, report.Err())
	assert.Equal(t, 4, report.Count(Succeeded))
	assert.Equal(t, p.Names(), []string{report.Results[0].Name, report.Results[1].Name, report.Results[2].Name, report.Results[3].Name})
}

func TestRunBoundsConcurrency(t *testing.T) {
	var formulas []*types.Formula
	var roots []string
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		formulas = append(formulas, testutil.NewFormula(n).Build())
		roots = append(roots, n)
	}
	p := plan(t, roots, formulas...)

	var running, peak int32
	task := func(ctx context.Context, step deps.Step) error {
		now := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	report := New(Options{Concurrency: 2}).Run(context.Background(), p, task)
	assert.Equal(t, 6, report.Count(Succeeded))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunFailureSkipsDependentsOnly(t *testing.T) {
	p := plan(t, []string{"c", "d"},
		testutil.NewFormula("a").Build(),
		testutil.NewFormula("b").Depends("a").Build(),
		testutil.NewFormula("c").Depends("b").Build(),
		testutil.NewFormula("d").Build(),
	)

	var ran sync.Map
	boom := errors.New(errors.ErrBuild, "make failed")
	task := func(ctx context.Context, step deps.Step) error {
		ran.Store(step.Name(), true)
		if step.Name() == "b" {
			return boom
		}
		return nil
	}

	report := New(Options{Concurrency: 2}).Run(context.Background(), p, task)

	a, _ := report.Result("a")
	b, _ := report.Result("b")
	c, _ := report.Result("c")
	d, _ := report.Result("d")
	assert.Equal(t, Succeeded, a.Outcome)
	assert.Equal(t, Failed, b.Outcome)
	assert.Equal(t, Skipped, c.Outcome)
	assert.Equal(t, "b", c.BlockedBy)
	assert.Equal(t, Succeeded, d.Outcome)

	_, started := ran.Load("c")
	assert.False(t, started, "a skipped step never starts")

	err := report.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunCanceled(t *testing.T) {
	p := plan(t, []string{"b"},
		testutil.NewFormula("a").Build(),
		testutil.NewFormula("b").Depends("a").Build(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := func(ctx context.Context, step deps.Step) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCanceled, "canceled")
		}
		return nil
	}
	report := New(Options{}).Run(ctx, p, task)

	a, _ := report.Result("a")
	b, _ := report.Result("b")
	assert.Equal(t, Canceled, a.Outcome)
	assert.Equal(t, Skipped, b.Outcome)
	assert.True(t, errors.IsErrorCode(report.Err(), errors.ErrCanceled))
}

func TestRunEmptyPlan(t *testing.T) {
	report := New(Options{}).Run(context.Background(), &deps.Plan{}, nil)
	assert.Empty(t, report.Results)
	assert.NoError(t, report.Err())
}
