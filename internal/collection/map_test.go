package collection

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap(t *testing.T) {
	m := NewSyncMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	assert.Equal(t, 2, m.Len())

	v, ok := m.Take("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = m.Take("a")
	assert.False(t, ok)

	assert.True(t, m.PutIfAbsent("c", 3))
	assert.False(t, m.PutIfAbsent("c", 4))
	v, ok = m.Take("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	m.Put("x", 10)
	m.Put("y", 20)
	values := m.Drain()
	sort.Ints(values)
	assert.Equal(t, []int{2, 10, 20}, values)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Drain())
}

func TestSyncMap_Concurrent(t *testing.T) {
	m := NewSyncMap[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put(i, i)
			m.PutIfAbsent(i, -i)
			m.Len()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, m.Len())
	values := m.Drain()
	sort.Ints(values)
	assert.Equal(t, 0, values[0])
	assert.Equal(t, 15, values[15])
}
