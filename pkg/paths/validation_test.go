package paths

import (
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateComponent(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"simple", "percona-server", true},
		{"version", "5.6.14-rel62.0", true},
		{"plus", "gtk+3", true},
		{"empty", "", false},
		{"separator", "a/b", false},
		{"backslash", `a\b`, false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"colon", "a:b", false},
		{"control", "a\tb", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponent("formula name", tt.value)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
		})
	}
}

func TestContainsPath(t *testing.T) {
	assert.True(t, ContainsPath("/p", "/p"))
	assert.True(t, ContainsPath("/p", "/p/Cellar/x/1"))
	assert.True(t, ContainsPath("/p/", "/p/bin/../lib"))
	assert.True(t, ContainsPath("/p", "/p/..hidden"))
	assert.False(t, ContainsPath("/p", "/prefix"))
	assert.False(t, ContainsPath("/p", "/p/../etc"))
	assert.False(t, ContainsPath("/p/src", "/p"))
}
