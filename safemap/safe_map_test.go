package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeMap_StoreLoadDelete(t *testing.T) {
	m := New[string, int]()
	require.NotNil(t, m)

	t.Run("load missing key", func(t *testing.T) {
		v, ok := m.Load("x")
		assert.False(t, ok)
		assert.Equal(t, 0, v)
	})

	t.Run("store then load", func(t *testing.T) {
		m.Store("a", 1)
		v, ok := m.Load("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("store overwrites", func(t *testing.T) {
		m.Store("a", 2)
		v, _ := m.Load("a")
		assert.Equal(t, 2, v)
	})

	t.Run("delete removes", func(t *testing.T) {
		m.Delete("a")
		_, ok := m.Load("a")
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("delete missing key is a no-op", func(t *testing.T) {
		m.Delete("never-stored")
	})
}

func TestSafeMap_Range(t *testing.T) {
	m := New[int, string]()
	m.Store(1, "a")
	m.Store(2, "b")
	m.Store(3, "c")

	t.Run("visits every entry", func(t *testing.T) {
		seen := make(map[int]string)
		m.Range(func(k int, v string) bool {
			seen[k] = v
			return true
		})
		assert.Equal(t, map[int]string{1: "a", 2: "b", 3: "c"}, seen)
	})

	t.Run("stops early when f returns false", func(t *testing.T) {
		visits := 0
		m.Range(func(int, string) bool {
			visits++
			return false
		})
		assert.Equal(t, 1, visits)
	})
}

func TestSafeMap_Concurrent(t *testing.T) {
	m := New[int, int]()
	const goroutines = 50
	const ops = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := id*ops + i
				m.Store(key, key)
				m.Load(key)
				m.Len()
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines*ops, m.Len())
}
