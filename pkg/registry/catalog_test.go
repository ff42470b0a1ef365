package registry

import (
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/testutil"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(
		Static(
			testutil.NewFormula("percona-server").Version("5.6.14").Build(),
			testutil.NewFormula("percona-server").Version("5.5.30").Build(),
			testutil.NewFormula("yeti").Version("0.9.8").Build(),
		),
		SourceFunc(func() ([]*types.Formula, error) {
			return []*types.Formula{
				testutil.NewFormula("percona-server").Version("5.6.9").Build(),
				testutil.NewFormula("algol68g").Version("2.7.0").Build(),
			}, nil
		}),
	)
	require.NoError(t, err)
	return c
}

func TestCatalogGetLatest(t *testing.T) {
	c := testCatalog(t)

	f, err := c.Get("percona-server")
	require.NoError(t, err)
	assert.Equal(t, "5.6.14", f.Version, "5.6.14 is newer than 5.6.9")
	assert.Equal(t, []string{"5.6.14", "5.6.9", "5.5.30"}, c.Versions("percona-server"))
}

func TestCatalogLookup(t *testing.T) {
	c := testCatalog(t)

	f, err := c.Lookup("percona-server", "~> 5.5.0")
	require.NoError(t, err)
	assert.Equal(t, "5.5.30", f.Version)

	f, err = c.Lookup("percona-server", "< 5.6.10, >= 5.6")
	require.NoError(t, err)
	assert.Equal(t, "5.6.9", f.Version)

	_, err = c.Lookup("percona-server", ">= 8")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	_, err = c.Lookup("percona-server", "not a constraint")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestCatalogNotFound(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Get("percona-sever")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Equal(t, "percona-server", errors.GetDetailString(err, "suggestion"))
}

func TestCatalogList(t *testing.T) {
	c := testCatalog(t)

	var got []string
	for id := range c.List() {
		got = append(got, id.String())
	}
	assert.Equal(t, []string{
		"algol68g@2.7.0",
		"percona-server@5.5.30",
		"percona-server@5.6.9",
		"percona-server@5.6.14",
		"yeti@0.9.8",
	}, got)

	// Restartable and stoppable.
	var again []string
	for id := range c.List() {
		again = append(again, id.String())
	}
	assert.Equal(t, got, again)

	n := 0
	for range c.List() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"algol68g", "percona-server", "yeti"}, c.Names())
}

func TestLoadRejectsDuplicates(t *testing.T) {
	_, err := Load(Static(
		testutil.NewFormula("x").Build(),
		testutil.NewFormula("x").Build(),
	))
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(Static(testutil.NewFormula("x").Version("not-a-version!").Build()))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	broken := testutil.NewFormula("y").Build()
	broken.Procedure = nil
	_, err = Load(Static(broken))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestLoadPropagatesSourceErrors(t *testing.T) {
	boom := errors.New(errors.ErrConfigLoad, "bad file")
	_, err := Load(SourceFunc(func() ([]*types.Formula, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)
}
