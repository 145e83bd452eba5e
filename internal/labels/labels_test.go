package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	require.Equal(t, 28, Default.Len())
	assert.Equal(t, "apple_fresh", Default.Name(0))
	assert.Equal(t, "apple_rotten", Default.Name(1))
	assert.Equal(t, "tomato_rotten", Default.Name(27))

	seen := make(map[string]bool)
	for i, name := range Default.Names() {
		assert.False(t, seen[name], "duplicate label %q", name)
		seen[name] = true

		item := Produce[i/2]
		if i%2 == 0 {
			assert.Equal(t, item+"_fresh", name)
		} else {
			assert.Equal(t, item+"_rotten", name)
		}
	}
}

func TestNameOutOfRange(t *testing.T) {
	assert.Equal(t, Unknown, Default.Name(-1))
	assert.Equal(t, Unknown, Default.Name(28))
	assert.Equal(t, Unknown, New(nil).Name(0))
}

func TestNamesIsCopy(t *testing.T) {
	names := Default.Names()
	names[0] = "mutated"
	assert.True(t, strings.HasSuffix(Default.Name(0), "_fresh"))
}
