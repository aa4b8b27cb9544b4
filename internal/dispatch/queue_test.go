package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.Dispatch(func() { got = append(got, i) })
	}
	q.Close()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestQueueNestedDispatch(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	wg.Add(1)

	var order []string
	q.Dispatch(func() {
		order = append(order, "outer")
		q.Dispatch(func() {
			order = append(order, "inner")
			wg.Done()
		})
	})

	wg.Wait()
	q.Close()

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestQueueDropsAfterClose(t *testing.T) {
	q := NewQueue()
	q.Close()

	called := false
	q.Dispatch(func() { called = true })
	q.Close()

	assert.False(t, called)
}
