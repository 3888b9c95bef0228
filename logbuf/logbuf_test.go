package logbuf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLines(t *testing.T) {
	b := New(10)

	_, err := b.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = b.Write([]byte("second\nthird\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, b.Lines())
}

func TestEvictsOldest(t *testing.T) {
	b := New(3)

	for i := 1; i <= 5; i++ {
		_, err := b.Write(fmt.Appendf(nil, "line-%d\n", i))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line-3", "line-4", "line-5"}, b.Lines())
}

func TestEmpty(t *testing.T) {
	b := New(0)
	assert.Empty(t, b.Lines())
	assert.Equal(t, DefaultCapacity, len(b.lines))
}
