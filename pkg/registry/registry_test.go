package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID   int
	Name string
}

func TestRegister(t *testing.T) {
	reg := New[testItem]("widget")

	require.NoError(t, reg.Register("one", testItem{ID: 1}))
	assert.Equal(t, 1, reg.Count())

	err := reg.Register("", testItem{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	err = reg.Register("one", testItem{ID: 2})
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	assert.Contains(t, err.Error(), "widget 'one'")
}

func TestGet(t *testing.T) {
	reg := New[testItem]("widget")
	require.NoError(t, reg.Register("archive", testItem{ID: 1, Name: "a"}))
	require.NoError(t, reg.Register("rpm", testItem{ID: 2, Name: "r"}))

	got, err := reg.Get("rpm")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID)

	t.Run("miss suggests close name", func(t *testing.T) {
		_, err := reg.Get("archiv")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		assert.Equal(t, "archive", errors.GetDetailString(err, "suggestion"))
	})

	t.Run("miss without suggestion", func(t *testing.T) {
		_, err := reg.Get("zzzzzzzz")
		require.Error(t, err)
		assert.Empty(t, errors.GetDetailString(err, "suggestion"))
	})
}

func TestListAndHas(t *testing.T) {
	reg := New[int]("")
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(n, len(n)))
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.List())
	assert.True(t, reg.Has("b"))
	assert.False(t, reg.Has("d"))
}

func TestConcurrency(t *testing.T) {
	reg := New[int]("n")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("item-%d", i)
			assert.NoError(t, reg.Register(name, i))
			_, _ = reg.Get(name)
			_ = reg.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Count())
}

func TestMustRegister(t *testing.T) {
	reg := New[int]("n")
	MustRegister(reg, "x", 1)
	assert.Panics(t, func() { MustRegister(reg, "x", 2) })
}

func TestSuggest(t *testing.T) {
	s, ok := Suggest("percona-sever", []string{"algol68g", "percona-server", "rpm"})
	assert.True(t, ok)
	assert.Equal(t, "percona-server", s)

	_, ok = Suggest("x", nil)
	assert.False(t, ok)
}
