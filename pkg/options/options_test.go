package options

import (
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libFormula() *types.Formula {
	return &types.Formula{
		Name:    "libby",
		Version: "1.0",
		Options: []types.Option{
			{Name: "use-lib-x", Description: "Use lib X"},
			{Name: "use-lib-y", Description: "Use lib Y", Default: true},
			{Name: "with-tests", Description: "Run the test suite"},
			{Name: Universal, Description: "Build a universal binary"},
		},
		OptionGroups: []types.OptionGroup{
			{Name: "lib", Members: []string{"use-lib-x", "use-lib-y"}},
		},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []Request
	}{
		{"bare", []string{"universal"}, []Request{{Name: "universal", Value: true}}},
		{"flag", []string{"--with-tests"}, []Request{{Name: "with-tests", Value: true}}},
		{"explicit false", []string{"use-lib-y=false"}, []Request{{Name: "use-lib-y", Value: false}}},
		{"without", []string{"--without-gsl"}, []Request{{Name: "with-gsl", Value: false}}},
		{"without false", []string{"without-gsl=false"}, []Request{{Name: "with-gsl", Value: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse([]string{"x=maybe"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = Parse([]string{"--"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestResolveDefaults(t *testing.T) {
	sel, err := Resolve(libFormula(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"use-lib-y"}, sel.Active())
	assert.Len(t, sel.Values(), 4)
}

func TestResolveExclusiveGroupExplicitWins(t *testing.T) {
	reqs, err := Parse([]string{"use-lib-x=true"})
	require.NoError(t, err)

	sel, err := Resolve(libFormula(), reqs)
	require.NoError(t, err)
	assert.True(t, sel.Enabled("use-lib-x"))
	assert.False(t, sel.Enabled("use-lib-y"))
}

func TestResolveExclusiveGroupFallbacks(t *testing.T) {
	f := libFormula()

	t.Run("disabling the default picks the other", func(t *testing.T) {
		sel, err := Resolve(f, []Request{{Name: "use-lib-y", Value: false}})
		require.NoError(t, err)
		assert.True(t, sel.Enabled("use-lib-x"))
		assert.False(t, sel.Enabled("use-lib-y"))
	})

	t.Run("group default beats member default", func(t *testing.T) {
		g := *f
		g.OptionGroups = []types.OptionGroup{{Name: "lib", Members: []string{"use-lib-x", "use-lib-y"}, Default: "use-lib-x"}}
		sel, err := Resolve(&g, nil)
		require.NoError(t, err)
		assert.True(t, sel.Enabled("use-lib-x"))
		assert.False(t, sel.Enabled("use-lib-y"))
	})

	t.Run("both requested conflicts", func(t *testing.T) {
		_, err := Resolve(f, []Request{{Name: "use-lib-x", Value: true}, {Name: "use-lib-y", Value: true}})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrOptionConflict))
		assert.Equal(t, "lib", errors.GetDetailString(err, "group"))
	})

	t.Run("both disabled conflicts", func(t *testing.T) {
		_, err := Resolve(f, []Request{{Name: "use-lib-x", Value: false}, {Name: "use-lib-y", Value: false}})
		assert.True(t, errors.IsErrorCode(err, errors.ErrOptionConflict))
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := Resolve(f, nil)
		require.NoError(t, err)
		b, err := Resolve(f, nil)
		require.NoError(t, err)
		assert.Equal(t, a.Values(), b.Values())
	})
}

func TestResolveUnknownOption(t *testing.T) {
	_, err := Resolve(libFormula(), []Request{{Name: "with-test", Value: true}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownOption))
	assert.Equal(t, "libby", errors.GetDetailString(err, errors.DetailFormula))
	assert.Equal(t, "with-tests", errors.GetDetailString(err, "suggestion"))
	assert.True(t, errors.IsResolutionError(err))
}

func TestResolveLastRequestWins(t *testing.T) {
	sel, err := Resolve(libFormula(), []Request{
		{Name: "with-tests", Value: true},
		{Name: "with-tests", Value: false},
	})
	require.NoError(t, err)
	assert.False(t, sel.Enabled("with-tests"))
}

func TestApplyUniversal(t *testing.T) {
	base := types.BuildConfig{Archs: []string{"arm64"}}

	plain := Apply(base, []string{"x86_64", "arm64"})
	assert.False(t, plain.Universal())

	base.Options = types.NewSelection(map[string]bool{Universal: true})
	uni := Apply(base, []string{"x86_64", "arm64"})
	assert.True(t, uni.Universal())
	assert.Equal(t, []string{"arm64"}, base.Archs, "the original config is not mutated")
}

func TestArgs(t *testing.T) {
	cfg := types.BuildConfig{Options: types.NewSelection(map[string]bool{"with-tests": true})}
	got := NewArgs(cfg, "-DCMAKE_INSTALL_PREFIX=/p").
		AddIf("with-tests", "-DWITH_UNIT_TESTS=ON").
		AddUnless("with-tests", "-DWITH_UNIT_TESTS=OFF").
		AddIf("with-embedded", "-DWITH_EMBEDDED_SERVER=ON").
		Choose("with-libedit", []string{"-DWITH_LIBEDIT=yes"}, []string{"-DWITH_READLINE=yes"}).
		Strings()
	assert.Equal(t, []string{
		"-DCMAKE_INSTALL_PREFIX=/p",
		"-DWITH_UNIT_TESTS=ON",
		"-DWITH_READLINE=yes",
	}, got)
}
