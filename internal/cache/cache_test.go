package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	AISRI int       `json:"aisri"`
	At    time.Time `json:"at"`
}

func openTest(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open("", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openTest(t, time.Hour)
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ReadinessKey("a1"), snapshot{AISRI: 77, At: at}))

	var got snapshot
	ok, err := c.Get(ReadinessKey("a1"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 77, got.AISRI)
	assert.True(t, got.At.Equal(at))
}

func TestGetMissing(t *testing.T) {
	c := openTest(t, 0)

	var got snapshot
	ok, err := c.Get(ReadinessKey("nobody"), &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	c := openTest(t, 0)
	require.NoError(t, c.Put("k", snapshot{AISRI: 50}))
	require.NoError(t, c.Put("k", snapshot{AISRI: 60}))

	var got snapshot
	ok, err := c.Get("k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 60, got.AISRI)
}

func TestDeleteAndKeys(t *testing.T) {
	c := openTest(t, 0)
	require.NoError(t, c.Put(ReadinessKey("a1"), snapshot{}))
	require.NoError(t, c.Put(ReadinessKey("a2"), snapshot{}))
	require.NoError(t, c.Put("other:a3", snapshot{}))

	keys, err := c.Keys(ReadinessPrefix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"readiness:a1", "readiness:a2"}, keys)

	require.NoError(t, c.Delete(ReadinessKey("a1")))
	require.NoError(t, c.Delete(ReadinessKey("missing")))
	keys, err = c.Keys(ReadinessPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"readiness:a2"}, keys)
}

func TestClosed(t *testing.T) {
	c, err := Open("", 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Error(t, c.Put("k", 1))
	_, err = c.Get("k", new(int))
	assert.Error(t, err)
}
