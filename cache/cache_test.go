package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct {
	name   string
	closed int
}

func (h *handle) Close() error {
	h.closed++
	return nil
}

func loader(loads *int) func(string) (*handle, error) {
	return func(key string) (*handle, error) {
		*loads++
		return &handle{name: key}, nil
	}
}

func TestGetOrLoadHitsAndMisses(t *testing.T) {
	c, err := New[string, *handle](2, nil)
	require.NoError(t, err)
	loads := 0

	a, err := c.GetOrLoad("a", loader(&loads))
	require.NoError(t, err)
	again, err := c.GetOrLoad("a", loader(&loads))
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.MaxSize())
}

func TestEvictionClosesLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, err := New[string, *handle](2, func(key string, closeErr error) {
		assert.NoError(t, closeErr)
		evicted = append(evicted, key)
	})
	require.NoError(t, err)
	loads := 0

	a, _ := c.GetOrLoad("a", loader(&loads))
	b, _ := c.GetOrLoad("b", loader(&loads))
	_, _ = c.GetOrLoad("a", loader(&loads)) // a is now most recent
	_, _ = c.GetOrLoad("c", loader(&loads))

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 0, a.closed)
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.Equal(t, 2, c.Len())

	_, _ = c.GetOrLoad("b", loader(&loads))
	assert.Equal(t, 4, loads, "evicted entry is loaded again")
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c, err := New[string, *handle](2, nil)
	require.NoError(t, err)
	boom := errors.New("boom")

	_, err = c.GetOrLoad("x", func(string) (*handle, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestPurgeAndRemoveClose(t *testing.T) {
	c, err := New[string, *handle](4, nil)
	require.NoError(t, err)
	h1, h2 := &handle{name: "1"}, &handle{name: "2"}
	c.Add("1", h1)
	c.Add("2", h2)

	assert.True(t, c.Remove("1"))
	assert.Equal(t, 1, h1.closed)

	c.Purge()
	assert.Equal(t, 1, h2.closed)
	assert.Equal(t, 0, c.Len())
}

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New[string, *handle](0, nil)
	assert.Error(t, err)
}
